package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/filebroker/internal/common"
	"github.com/dmitrijs2005/filebroker/internal/logging"
	"github.com/dmitrijs2005/filebroker/internal/server/config"
	"github.com/dmitrijs2005/filebroker/internal/server/metadata"
)

type fakeSigner struct {
	uploads   []string
	downloads []string
	err       error
}

func (f *fakeSigner) SignUpload(ctx context.Context, objectKey, contentType string, expiry time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads = append(f.uploads, objectKey)
	return "https://cdn.example.com/" + objectKey + "?Policy=p&Signature=s&Key-Pair-Id=K", nil
}

func (f *fakeSigner) SignDownload(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.downloads = append(f.downloads, objectKey)
	return "https://cdn.example.com/" + objectKey + "?Policy=p&Signature=s&Key-Pair-Id=K", nil
}

type fakeDeleter struct {
	in  *s3.DeleteObjectInput
	err error
}

func (f *fakeDeleter) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.DeleteObjectOutput{}, nil
}

// brokenRepo fails every read with an infrastructure error.
type brokenRepo struct {
	metadata.Repository
}

func (b *brokenRepo) Get(ctx context.Context, fileID string) (*metadata.Record, error) {
	return nil, fmt.Errorf("%w: table unavailable", common.ErrDependency)
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BucketName = "file-broker-bucket"
	return cfg
}

func newTestService(t *testing.T) (*Service, *metadata.InMemoryRepository, *fakeSigner, *fakeDeleter) {
	t.Helper()
	repo := metadata.NewInMemoryRepository()
	sg := &fakeSigner{}
	del := &fakeDeleter{}
	svc := NewService(repo, sg, del, testLogger(), testConfig())
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo, sg, del
}

func TestIssueUploadURL_CreatesPendingRecord(t *testing.T) {
	svc, repo, sg, _ := newTestService(t)
	ctx := context.Background()

	grant, err := svc.IssueUploadURL(ctx, "example.txt", "text/plain")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}_example\.txt$`), grant.FileID)
	assert.Equal(t, grant.FileID, grant.Filename)
	assert.Equal(t, "PUT", grant.Method)
	assert.Equal(t, 900, grant.ExpiresIn)
	assert.Equal(t, "text/plain", grant.ContentType)
	assert.Contains(t, grant.UploadURL, "uploads/"+grant.FileID)

	require.Len(t, sg.uploads, 1)
	assert.Equal(t, "uploads/"+grant.FileID, sg.uploads[0])

	record, err := repo.Get(ctx, grant.FileID)
	require.NoError(t, err)
	assert.Equal(t, metadata.StatusPending, record.Status)
	assert.Equal(t, "example.txt", record.OriginalFilename)
	assert.Equal(t, "uploads/"+grant.FileID, record.ObjectKey)
	assert.Equal(t, svc.now().Add(metadata.RecordTTL).Unix(), record.TTL)
}

func TestIssueUploadURL_MissingFilenameHasNoSideEffects(t *testing.T) {
	svc, repo, sg, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.IssueUploadURL(ctx, "", "text/plain")
	assert.ErrorIs(t, err, common.ErrValidation)

	all, err := repo.ScanAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "no metadata row may be created")
	assert.Empty(t, sg.uploads, "no URL may be signed")
}

func TestIssueUploadURL_DefaultsContentType(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	grant, err := svc.IssueUploadURL(context.Background(), "blob.bin", "")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", grant.ContentType)
}

func TestIssueUploadURL_SigningFailurePropagates(t *testing.T) {
	svc, repo, sg, _ := newTestService(t)
	sg.err = fmt.Errorf("%w: no key", common.ErrSigning)

	_, err := svc.IssueUploadURL(context.Background(), "x.txt", "")
	assert.ErrorIs(t, err, common.ErrSigning)

	all, _ := repo.ScanAll(context.Background())
	assert.Empty(t, all)
}

func TestRoundTrip_UploadThenDownloadThenList(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	grant, err := svc.IssueUploadURL(ctx, "example.txt", "text/plain")
	require.NoError(t, err)

	dl, err := svc.IssueDownloadURL(ctx, grant.FileID)
	require.NoError(t, err)
	assert.Equal(t, grant.FileID, dl.FileID)
	assert.Equal(t, "example.txt", dl.Filename)
	assert.Equal(t, 3600, dl.ExpiresIn)
	assert.False(t, dl.Fallback)
	assert.Contains(t, dl.DownloadURL, "uploads/"+grant.FileID)

	infos, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, grant.FileID, infos[0].FileID)
	assert.Equal(t, metadata.StatusPending, infos[0].Status)
}

func TestIssueDownloadURL_UnknownID(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.IssueDownloadURL(context.Background(), "nope_missing.txt")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestIssueDownloadURL_MissingID(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.IssueDownloadURL(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestIssueDownloadURL_TableFailureFallsBack(t *testing.T) {
	repo := &brokenRepo{Repository: metadata.NewInMemoryRepository()}
	sg := &fakeSigner{}
	svc := NewService(repo, sg, &fakeDeleter{}, testLogger(), testConfig())

	dl, err := svc.IssueDownloadURL(context.Background(), "ab12cd34_lost.txt")
	require.NoError(t, err, "table failure is non-fatal for downloads")
	assert.True(t, dl.Fallback)
	assert.Equal(t, "ab12cd34_lost.txt", dl.Filename)
	require.Len(t, sg.downloads, 1)
	assert.Equal(t, "uploads/ab12cd34_lost.txt", sg.downloads[0])
}

func TestDelete_RemovesObjectAndRow(t *testing.T) {
	svc, repo, _, del := newTestService(t)
	ctx := context.Background()

	grant, err := svc.IssueUploadURL(ctx, "gone.txt", "")
	require.NoError(t, err)

	res, err := svc.Delete(ctx, grant.FileID)
	require.NoError(t, err)
	assert.True(t, res.ObjectDeleted)

	assert.Equal(t, "file-broker-bucket", *del.in.Bucket)
	assert.Equal(t, "uploads/"+grant.FileID, *del.in.Key)

	_, err = repo.Get(ctx, grant.FileID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete_ObjectFailureIsSwallowed(t *testing.T) {
	svc, repo, _, del := newTestService(t)
	ctx := context.Background()
	del.err = errors.New("access denied")

	grant, err := svc.IssueUploadURL(ctx, "stuck.txt", "")
	require.NoError(t, err)

	res, err := svc.Delete(ctx, grant.FileID)
	require.NoError(t, err, "blob-store failure must not fail the deletion")
	assert.False(t, res.ObjectDeleted)

	_, err = repo.Get(ctx, grant.FileID)
	assert.ErrorIs(t, err, common.ErrNotFound, "metadata row is removed regardless")
}

func TestDelete_UnknownID(t *testing.T) {
	svc, _, _, del := newTestService(t)

	_, err := svc.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Nil(t, del.in, "no object delete may be attempted")
}

func TestIssueUploadURL_IDGenerationFailure(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	orig := makeRandHexString
	t.Cleanup(func() { makeRandHexString = orig })
	makeRandHexString = func(size int) (string, error) { return "", errors.New("entropy exhausted") }

	_, err := svc.IssueUploadURL(context.Background(), "x.txt", "")
	assert.ErrorIs(t, err, common.ErrDependency)
}
