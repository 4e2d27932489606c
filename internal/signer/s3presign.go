package signer

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/filebroker/internal/common"
)

// seams for testing the SDK presign calls.
var (
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// S3Presigner issues storage-native presigned URLs. It is the development
// alternative to the CDN signer: same interface, no key material to manage,
// URLs verified by the storage service itself.
type S3Presigner struct {
	bucket  string
	presign *s3.PresignClient
}

// NewS3Presigner returns a presigner for the given bucket.
func NewS3Presigner(client *s3.Client, bucket string) *S3Presigner {
	return &S3Presigner{
		bucket:  bucket,
		presign: newS3PresignClient(client),
	}
}

func (s *S3Presigner) SignUpload(ctx context.Context, objectKey, contentType string, expiry time.Duration) (string, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := presignPutObject(s.presign, ctx, in, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("%w: presigning put: %v", common.ErrSigning, err)
	}
	return req.URL, nil
}

func (s *S3Presigner) SignDownload(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	req, err := presignGetObject(s.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("%w: presigning get: %v", common.ErrSigning, err)
	}
	return req.URL, nil
}
