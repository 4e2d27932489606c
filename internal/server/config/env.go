package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables. A .env file in
// the working directory is loaded first, without clobbering variables that
// are already set.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	cfg.EndpointAddr = getEnv("ADDRESS", cfg.EndpointAddr)

	cfg.BucketName = getEnv("BUCKET_NAME", cfg.BucketName)
	cfg.TableName = getEnv("TABLE_NAME", cfg.TableName)
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", cfg.DatabaseDSN)

	cfg.CloudFrontDomain = getEnv("CLOUDFRONT_DOMAIN", cfg.CloudFrontDomain)
	cfg.CloudFrontKeyPairID = getEnv("CLOUDFRONT_KEY_PAIR_ID", cfg.CloudFrontKeyPairID)
	cfg.PrivateKeySecretARN = getEnv("PRIVATE_KEY_SECRET_ARN", cfg.PrivateKeySecretARN)

	cfg.UploadExpiration = getEnvSeconds("UPLOAD_EXPIRATION", cfg.UploadExpiration)
	cfg.DownloadExpiration = getEnvSeconds("DOWNLOAD_EXPIRATION", cfg.DownloadExpiration)

	cfg.MetadataBackend = getEnv("METADATA_BACKEND", cfg.MetadataBackend)
	cfg.SignerBackend = getEnv("SIGNER_BACKEND", cfg.SignerBackend)

	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.AWSBaseEndpoint = getEnv("AWS_BASE_ENDPOINT", cfg.AWSBaseEndpoint)
	cfg.StaticAccessKeyID = getEnv("STATIC_ACCESS_KEY_ID", cfg.StaticAccessKeyID)
	cfg.StaticSecretAccessKey = getEnv("STATIC_SECRET_ACCESS_KEY", cfg.StaticSecretAccessKey)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvSeconds reads an integer number of seconds, matching the wire format
// of UPLOAD_EXPIRATION/DOWNLOAD_EXPIRATION used by earlier deployments.
func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
