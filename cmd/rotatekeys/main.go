// Command rotatekeys runs one pass of the signing key rotation. It is meant
// to be invoked manually or from a scheduler, never concurrently with itself.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/filebroker/internal/awsx"
	"github.com/dmitrijs2005/filebroker/internal/logging"
	"github.com/dmitrijs2005/filebroker/internal/rotation"
)

func main() {

	ctx := context.Background()

	_ = godotenv.Load()

	project := flag.String("p", envOr("PROJECT_NAME", "filebroker"), "project name used in key and group naming")
	prefix := flag.String("n", envOr("PARAM_PREFIX", rotation.DefaultParamPrefix), "parameter store namespace")
	keyGroup := flag.String("g", os.Getenv("KEY_GROUP_ID"), "inactive key group id (first registered group when empty)")
	region := flag.String("r", envOr("AWS_REGION", "us-east-1"), "AWS region")
	flag.Parse()

	logger := logging.NewDefault()

	awsCfg, err := awsx.Load(ctx, *region,
		os.Getenv("STATIC_ACCESS_KEY_ID"), os.Getenv("STATIC_SECRET_ACCESS_KEY"))
	if err != nil {
		log.Fatalf("aws config init error: %v", err)
	}

	rotator := rotation.NewRotator(
		cloudfront.NewFromConfig(awsCfg),
		secretsmanager.NewFromConfig(awsCfg),
		ssm.NewFromConfig(awsCfg),
		logger,
		rotation.Config{ProjectName: *project, ParamPrefix: *prefix, KeyGroupID: *keyGroup},
	)

	res, err := rotator.Run(ctx)
	if err != nil {
		log.Fatalf("rotation failed: %v", err)
	}

	logger.Info(ctx, "rotation complete",
		"new_active_key_id", res.NewKeyID,
		"demoted_key_id", res.PreviousActiveKeyID,
		"retired_key_id", res.RetiredKeyID)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
