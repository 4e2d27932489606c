package signer

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/filebroker/internal/common"
)

func newTestSigner(t *testing.T) (*CloudFrontSigner, *rsa.PrivateKey) {
	t.Helper()
	key, pemStr := testKeyPEM(t)
	ks := NewKeySource(&fakeSecrets{value: pemStr}, "arn")
	s := NewCloudFrontSigner("d111111abcdef8.cloudfront.net", "K2JCJMDEHXQW5F", ks)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s, key
}

func TestSignURL_PolicyRoundTripAndSignatureVerifies(t *testing.T) {
	s, key := newTestSigner(t)

	resource := "https://d111111abcdef8.cloudfront.net/uploads/ab12cd34_example.txt"
	signed, err := s.SignURL(context.Background(), resource, time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, "K2JCJMDEHXQW5F", q.Get("Key-Pair-Id"))
	assert.True(t, strings.HasPrefix(signed, resource+"?"))

	policyBytes, err := DecodeSpecial(q.Get("Policy"))
	require.NoError(t, err)

	want := `{"Statement":[{"Resource":"` + resource + `","Condition":{"DateLessThan":{"AWS:EpochTime":1700003600}}}]}`
	assert.Equal(t, want, string(policyBytes))

	sig, err := DecodeSpecial(q.Get("Signature"))
	require.NoError(t, err)

	digest := sha1.Sum(policyBytes)
	require.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA1, digest[:], sig))
}

func TestSignURL_Deterministic(t *testing.T) {
	s, _ := newTestSigner(t)

	a, err := s.SignURL(context.Background(), "https://d111111abcdef8.cloudfront.net/uploads/x", 900*time.Second)
	require.NoError(t, err)
	b, err := s.SignURL(context.Background(), "https://d111111abcdef8.cloudfront.net/uploads/x", 900*time.Second)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSignURL_AppendsWithAmpersandWhenQueryPresent(t *testing.T) {
	s, _ := newTestSigner(t)

	signed, err := s.SignURL(context.Background(), "https://d111111abcdef8.cloudfront.net/uploads/x?v=1", time.Minute)
	require.NoError(t, err)

	assert.Contains(t, signed, "?v=1&Policy=")
	assert.NotContains(t, signed, "??")
}

func TestSignUploadAndDownload_UseDistributionDomain(t *testing.T) {
	s, _ := newTestSigner(t)
	ctx := context.Background()

	up, err := s.SignUpload(ctx, "uploads/ab12cd34_a.bin", "application/octet-stream", 900*time.Second)
	require.NoError(t, err)
	down, err := s.SignDownload(ctx, "uploads/ab12cd34_a.bin", time.Hour)
	require.NoError(t, err)

	for _, u := range []string{up, down} {
		assert.True(t, strings.HasPrefix(u, "https://d111111abcdef8.cloudfront.net/uploads/ab12cd34_a.bin?"))
	}
}

func TestSignURL_KeyLoadFailureIsFatal(t *testing.T) {
	ks := NewKeySource(&fakeSecrets{value: "not a key"}, "arn")
	s := NewCloudFrontSigner("cdn.example.com", "KEYID", ks)

	_, err := s.SignURL(context.Background(), "https://cdn.example.com/uploads/x", time.Minute)
	assert.ErrorIs(t, err, common.ErrSigning)
}
