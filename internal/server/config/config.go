// Package config handles configuration for the server component,
// including defaults, .env/environment overlay, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Backend selectors understood by the server.
const (
	MetadataDynamoDB = "dynamodb"
	MetadataPostgres = "postgres"
	MetadataMemory   = "memory"

	SignerCloudFront = "cloudfront"
	SignerS3Presign  = "s3"
)

// Config holds runtime settings for the broker server.
//
// Fields:
//   - EndpointAddr: bind address for the HTTP API.
//   - BucketName: object-storage bucket holding uploaded files.
//   - TableName: metadata table name (dynamodb backend).
//   - DatabaseDSN: PostgreSQL DSN (postgres backend).
//   - CloudFrontDomain / CloudFrontKeyPairID / PrivateKeySecretARN:
//     CDN distribution domain, active public-key id and the secret holding
//     the matching private key (cloudfront signer).
//   - UploadExpiration / DownloadExpiration: signed-URL lifetimes.
//   - MetadataBackend: dynamodb, postgres or memory.
//   - SignerBackend: cloudfront or s3 (storage-native presigned URLs).
//   - AWSRegion / AWSBaseEndpoint: SDK client settings; the base endpoint
//     override is meant for localstack/minio-style development setups.
//   - StaticAccessKeyID / StaticSecretAccessKey: static credentials, only
//     applied when a base endpoint override is set.
type Config struct {
	EndpointAddr string

	BucketName  string
	TableName   string
	DatabaseDSN string

	CloudFrontDomain    string
	CloudFrontKeyPairID string
	PrivateKeySecretARN string

	UploadExpiration   time.Duration
	DownloadExpiration time.Duration

	MetadataBackend string
	SignerBackend   string

	AWSRegion             string
	AWSBaseEndpoint       string
	StaticAccessKeyID     string
	StaticSecretAccessKey string
}

// LoadDefaults populates Config with development defaults. Settings without
// a safe default (bucket, table, CDN key material) stay empty and are caught
// by Validate.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.UploadExpiration = 900 * time.Second
	c.DownloadExpiration = 3600 * time.Second
	c.MetadataBackend = MetadataDynamoDB
	c.SignerBackend = SignerCloudFront
	c.AWSRegion = "us-east-1"
}

// Validate checks that every setting the selected backends depend on is
// present. The server refuses to start on the first missing value.
func (c *Config) Validate() error {
	if c.BucketName == "" {
		return errors.New("config: bucket name is required")
	}

	switch c.MetadataBackend {
	case MetadataDynamoDB:
		if c.TableName == "" {
			return errors.New("config: table name is required for the dynamodb backend")
		}
	case MetadataPostgres:
		if c.DatabaseDSN == "" {
			return errors.New("config: database DSN is required for the postgres backend")
		}
	case MetadataMemory:
	default:
		return fmt.Errorf("config: unknown metadata backend %q", c.MetadataBackend)
	}

	switch c.SignerBackend {
	case SignerCloudFront:
		if c.CloudFrontDomain == "" {
			return errors.New("config: CloudFront domain is required")
		}
		if c.CloudFrontKeyPairID == "" {
			return errors.New("config: CloudFront key pair id is required")
		}
		if c.PrivateKeySecretARN == "" {
			return errors.New("config: private key secret ARN is required")
		}
	case SignerS3Presign:
	default:
		return fmt.Errorf("config: unknown signer backend %q", c.SignerBackend)
	}

	if c.UploadExpiration <= 0 || c.DownloadExpiration <= 0 {
		return errors.New("config: expirations must be positive")
	}

	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment (including an optional .env file) and finally from
// command-line flags. It fails fast on invalid configuration.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
