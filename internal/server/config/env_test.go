package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseEnv_Overlay(t *testing.T) {
	t.Setenv("BUCKET_NAME", "files-prod")
	t.Setenv("TABLE_NAME", "file-metadata-prod")
	t.Setenv("CLOUDFRONT_DOMAIN", "d111111abcdef8.cloudfront.net")
	t.Setenv("UPLOAD_EXPIRATION", "600")
	t.Setenv("DOWNLOAD_EXPIRATION", "7200")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "files-prod", cfg.BucketName)
	assert.Equal(t, "file-metadata-prod", cfg.TableName)
	assert.Equal(t, "d111111abcdef8.cloudfront.net", cfg.CloudFrontDomain)
	assert.Equal(t, 600*time.Second, cfg.UploadExpiration)
	assert.Equal(t, 7200*time.Second, cfg.DownloadExpiration)
}

func TestParseEnv_BadExpirationKeepsDefault(t *testing.T) {
	t.Setenv("UPLOAD_EXPIRATION", "soon")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, 900*time.Second, cfg.UploadExpiration)
}

func TestParseEnv_EmptyEnvKeepsDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, ":8080", cfg.EndpointAddr)
	assert.Equal(t, MetadataDynamoDB, cfg.MetadataBackend)
}
