// Package awsx centralizes construction of the AWS SDK configuration shared
// by all service clients.
package awsx

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// seam for testing config.LoadDefaultConfig.
var loadDefaultConfig = config.LoadDefaultConfig

// Load builds an aws.Config for the given region. When accessKeyID is
// non-empty, static credentials are used instead of the default provider
// chain; this is how localstack/minio-style setups are wired.
func Load(ctx context.Context, region, accessKeyID, secretAccessKey string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if accessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")))
	}

	return loadDefaultConfig(ctx, opts...)
}
