package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/filebroker/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-b string   object-storage bucket name
//	-t string   metadata table name
//	-d string   PostgreSQL DSN
//	-m string   metadata backend (dynamodb|postgres|memory)
//	-s string   signer backend (cloudfront|s3)
//	-u int      upload URL expiration, seconds
//	-w int      download URL expiration, seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-b", "-t", "-d", "-m", "-s", "-u", "-w"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.BucketName, "b", config.BucketName, "object-storage bucket name")
	fs.StringVar(&config.TableName, "t", config.TableName, "metadata table name")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.MetadataBackend, "m", config.MetadataBackend, "metadata backend")
	fs.StringVar(&config.SignerBackend, "s", config.SignerBackend, "signer backend")

	uploadExpiration := fs.Int("u", int(config.UploadExpiration.Seconds()), "upload URL expiration (in seconds)")
	downloadExpiration := fs.Int("w", int(config.DownloadExpiration.Seconds()), "download URL expiration (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.UploadExpiration = time.Duration(*uploadExpiration) * time.Second
	config.DownloadExpiration = time.Duration(*downloadExpiration) * time.Second
}
