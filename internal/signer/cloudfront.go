package signer

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/filebroker/internal/common"
)

// URLSigner issues time-bounded URLs granting access to a stored object.
type URLSigner interface {
	// SignUpload returns a URL the caller can PUT the object body to.
	SignUpload(ctx context.Context, objectKey, contentType string, expiry time.Duration) (string, error)
	// SignDownload returns a URL the caller can GET the object from.
	SignDownload(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

// CloudFrontSigner implements the CDN's legacy custom-policy signing scheme:
// a canonical policy document signed with PKCS#1 v1.5 / SHA-1. The digest
// and padding are mandated by the CDN's verification contract and must not
// be changed.
type CloudFrontSigner struct {
	domain    string
	keyPairID string
	keys      *KeySource
	now       func() time.Time
}

// NewCloudFrontSigner returns a signer for the given distribution domain,
// signing with the active key pair.
func NewCloudFrontSigner(domain, keyPairID string, keys *KeySource) *CloudFrontSigner {
	return &CloudFrontSigner{
		domain:    domain,
		keyPairID: keyPairID,
		keys:      keys,
		now:       time.Now,
	}
}

// Keys exposes the underlying key source, so the owner can invalidate the
// cached key when a rotation is detected.
func (s *CloudFrontSigner) Keys() *KeySource { return s.keys }

func (s *CloudFrontSigner) resourceURL(objectKey string) string {
	return fmt.Sprintf("https://%s/%s", s.domain, objectKey)
}

// SignURL signs an arbitrary resource URL. The same signature scheme covers
// both GET and PUT requests; the method is constrained by the distribution,
// not the policy.
func (s *CloudFrontSigner) SignURL(ctx context.Context, resourceURL string, expiry time.Duration) (string, error) {
	key, err := s.keys.PrivateKey(ctx)
	if err != nil {
		return "", err
	}

	expires := s.now().Add(expiry)

	policyBytes, err := NewPolicy(resourceURL, expires).Marshal()
	if err != nil {
		return "", fmt.Errorf("%w: marshalling policy: %v", common.ErrSigning, err)
	}

	digest := sha1.Sum(policyBytes)
	signature, err := rsa.SignPKCS1v15(nil, key, crypto.SHA1, digest[:])
	if err != nil {
		return "", fmt.Errorf("%w: signing policy: %v", common.ErrSigning, err)
	}

	separator := "?"
	if strings.Contains(resourceURL, "?") {
		separator = "&"
	}

	return fmt.Sprintf("%s%sPolicy=%s&Signature=%s&Key-Pair-Id=%s",
		resourceURL, separator, EncodeSpecial(policyBytes), EncodeSpecial(signature), s.keyPairID), nil
}

func (s *CloudFrontSigner) SignUpload(ctx context.Context, objectKey, contentType string, expiry time.Duration) (string, error) {
	// The policy does not bind headers; the Content-Type is echoed back to
	// the caller by the service layer.
	return s.SignURL(ctx, s.resourceURL(objectKey), expiry)
}

func (s *CloudFrontSigner) SignDownload(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	return s.SignURL(ctx, s.resourceURL(objectKey), expiry)
}
