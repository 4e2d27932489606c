// Package files implements the broker operations: issuing signed upload and
// download URLs, listing tracked files and deleting them.
package files

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/filebroker/internal/common"
	"github.com/dmitrijs2005/filebroker/internal/logging"
	"github.com/dmitrijs2005/filebroker/internal/server/config"
	"github.com/dmitrijs2005/filebroker/internal/server/metadata"
	"github.com/dmitrijs2005/filebroker/internal/signer"
)

// ObjectKeyPrefix is where uploaded objects live inside the bucket.
const ObjectKeyPrefix = "uploads/"

const defaultContentType = "application/octet-stream"

// ObjectDeleter is the slice of the storage API the service needs.
// *s3.Client satisfies it.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// seam for testing id generation.
var makeRandHexString = common.MakeRandHexString

// Service wires the signer, the metadata repository and the object store
// into the four broker operations. All methods are synchronous; the only
// blocking points are the calls to the external services.
type Service struct {
	repo    metadata.Repository
	signer  signer.URLSigner
	objects ObjectDeleter
	logger  logging.Logger
	config  *config.Config
	now     func() time.Time
}

func NewService(repo metadata.Repository, urlSigner signer.URLSigner, objects ObjectDeleter,
	logger logging.Logger, cfg *config.Config) *Service {
	return &Service{
		repo:    repo,
		signer:  urlSigner,
		objects: objects,
		logger:  logger,
		config:  cfg,
		now:     time.Now,
	}
}

// UploadGrant is the issued permission to PUT an object.
type UploadGrant struct {
	UploadURL   string
	FileID      string
	Filename    string
	ExpiresIn   int
	Method      string
	ContentType string
}

// DownloadGrant is the issued permission to GET an object. Fallback is set
// when the metadata read failed and the object path was guessed from the
// file id instead.
type DownloadGrant struct {
	DownloadURL string
	Filename    string
	FileID      string
	ExpiresIn   int
	Fallback    bool
}

// FileInfo is one listing entry.
type FileInfo struct {
	FileID      string
	Filename    string
	ContentType string
	UploadedAt  time.Time
	Status      string
}

// DeleteResult reports what a deletion actually removed. ObjectDeleted is
// false when the blob-store delete failed; the metadata row is gone either
// way, which can leave an orphaned stored object.
type DeleteResult struct {
	FileID        string
	ObjectDeleted bool
}

// IssueUploadURL validates the request, generates a unique file id, signs an
// upload URL and records the pending row. Validation happens before any side
// effect: a missing filename leaves no trace.
func (s *Service) IssueUploadURL(ctx context.Context, filename, contentType string) (*UploadGrant, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: missing filename", common.ErrValidation)
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	suffix, err := makeRandHexString(4)
	if err != nil {
		return nil, fmt.Errorf("%w: generating file id: %v", common.ErrDependency, err)
	}
	fileID := suffix + "_" + filename
	objectKey := ObjectKeyPrefix + fileID

	uploadURL, err := s.signer.SignUpload(ctx, objectKey, contentType, s.config.UploadExpiration)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := &metadata.Record{
		FileID:               fileID,
		OriginalFilename:     filename,
		ContentType:          contentType,
		ObjectKey:            objectKey,
		Status:               metadata.StatusPending,
		UploadURLGeneratedAt: now,
		TTL:                  now.Add(metadata.RecordTTL).Unix(),
	}
	if err := s.repo.Put(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "issued upload url", "file_id", fileID, "expires_in", int(s.config.UploadExpiration.Seconds()))

	return &UploadGrant{
		UploadURL:   uploadURL,
		FileID:      fileID,
		Filename:    fileID,
		ExpiresIn:   int(s.config.UploadExpiration.Seconds()),
		Method:      "PUT",
		ContentType: contentType,
	}, nil
}

// IssueDownloadURL signs a download URL for an already-tracked file. A clean
// not-found is surfaced as such; any other metadata read failure is treated
// as non-fatal and replaced with a best-guess object path under the uploads/
// prefix. That fallback masks real table failures and is kept for
// compatibility with earlier deployments.
func (s *Service) IssueDownloadURL(ctx context.Context, fileID string) (*DownloadGrant, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: missing file id", common.ErrValidation)
	}

	objectKey := ObjectKeyPrefix + fileID
	filename := fileID
	fallback := false

	record, err := s.repo.Get(ctx, fileID)
	switch {
	case err == nil:
		objectKey = record.ObjectKey
		filename = record.OriginalFilename
	case errors.Is(err, common.ErrNotFound):
		return nil, err
	default:
		fallback = true
		s.logger.Warn(ctx, "metadata read failed, using fallback object path",
			"file_id", fileID, "object_key", objectKey, "error", err.Error())
	}

	downloadURL, err := s.signer.SignDownload(ctx, objectKey, s.config.DownloadExpiration)
	if err != nil {
		return nil, err
	}

	return &DownloadGrant{
		DownloadURL: downloadURL,
		Filename:    filename,
		FileID:      fileID,
		ExpiresIn:   int(s.config.DownloadExpiration.Seconds()),
		Fallback:    fallback,
	}, nil
}

// List returns every tracked file. Unbounded by contract.
func (s *Service) List(ctx context.Context) ([]FileInfo, error) {
	records, err := s.repo.ScanAll(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]FileInfo, 0, len(records))
	for _, record := range records {
		filename := record.OriginalFilename
		if filename == "" {
			filename = record.FileID
		}
		infos = append(infos, FileInfo{
			FileID:      record.FileID,
			Filename:    filename,
			ContentType: record.ContentType,
			UploadedAt:  record.UploadURLGeneratedAt,
			Status:      record.Status,
		})
	}
	return infos, nil
}

// Delete removes the stored object best-effort and then the metadata row
// unconditionally. A blob-store failure is logged and swallowed.
func (s *Service) Delete(ctx context.Context, fileID string) (*DeleteResult, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: missing file id", common.ErrValidation)
	}

	record, err := s.repo.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}

	objectDeleted := true
	_, err = s.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(record.ObjectKey),
	})
	if err != nil {
		objectDeleted = false
		s.logger.Error(ctx, "object delete failed, metadata row removed anyway",
			"file_id", fileID, "object_key", record.ObjectKey, "error", err.Error())
	}

	if err := s.repo.Delete(ctx, fileID); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "file deleted", "file_id", fileID, "object_deleted", objectDeleted)

	return &DeleteResult{FileID: fileID, ObjectDeleted: objectDeleted}, nil
}
