// Package server initializes and runs the broker server. It selects the
// metadata and signer backends from configuration, wires the HTTP API and
// handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/filebroker/internal/awsx"
	"github.com/dmitrijs2005/filebroker/internal/logging"
	"github.com/dmitrijs2005/filebroker/internal/server/api"
	"github.com/dmitrijs2005/filebroker/internal/server/config"
	"github.com/dmitrijs2005/filebroker/internal/server/files"
	"github.com/dmitrijs2005/filebroker/internal/server/metadata"
	"github.com/dmitrijs2005/filebroker/internal/signer"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	echo   *echo.Echo
	keys   *signer.KeySource
	db     *sql.DB
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewDefault()

	awsCfg, err := awsx.Load(ctx, cfg.AWSRegion, cfg.StaticAccessKeyID, cfg.StaticSecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("aws config init error: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWSBaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSBaseEndpoint)
			o.UsePathStyle = true
		}
	})

	app := &App{config: cfg, logger: logger}

	repo, err := app.buildRepository(ctx, awsCfg)
	if err != nil {
		return nil, err
	}

	urlSigner := app.buildSigner(awsCfg, s3Client)

	svc := files.NewService(repo, urlSigner, s3Client, logger, cfg)

	e, err := api.SetupRouter(api.NewHandler(svc, cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("router init error: %w", err)
	}
	app.echo = e

	return app, nil
}

func (app *App) buildRepository(ctx context.Context, awsCfg aws.Config) (metadata.Repository, error) {
	switch app.config.MetadataBackend {
	case config.MetadataDynamoDB:
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if app.config.AWSBaseEndpoint != "" {
				o.BaseEndpoint = aws.String(app.config.AWSBaseEndpoint)
			}
		})
		return metadata.NewDynamoRepository(client, app.config.TableName), nil
	case config.MetadataPostgres:
		db, err := metadata.OpenPostgres(ctx, app.config.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.db = db
		return metadata.NewPostgresRepository(db), nil
	case config.MetadataMemory:
		return metadata.NewInMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown metadata backend %q", app.config.MetadataBackend)
	}
}

func (app *App) buildSigner(awsCfg aws.Config, s3Client *s3.Client) signer.URLSigner {
	if app.config.SignerBackend == config.SignerS3Presign {
		return signer.NewS3Presigner(s3Client, app.config.BucketName)
	}

	secrets := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if app.config.AWSBaseEndpoint != "" {
			o.BaseEndpoint = aws.String(app.config.AWSBaseEndpoint)
		}
	})
	app.keys = signer.NewKeySource(secrets, app.config.PrivateKeySecretARN)
	return signer.NewCloudFrontSigner(app.config.CloudFrontDomain, app.config.CloudFrontKeyPairID, app.keys)
}

// initSignalHandler cancels the run context on a termination signal. SIGHUP
// instead drops the cached private key so a completed rotation takes effect
// without recycling the process.
func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	go func() {
		for sig := range sigs {
			if sig == syscall.SIGHUP {
				if app.keys != nil {
					app.keys.Invalidate()
					app.logger.Info(ctx, "signing key cache invalidated")
				}
				continue
			}
			cancelFunc()
			return
		}
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting server", "addr", app.config.EndpointAddr,
		"metadata_backend", app.config.MetadataBackend, "signer_backend", app.config.SignerBackend)

	app.initSignalHandler(ctx, cancelFunc)

	go func() {
		if err := app.echo.Start(app.config.EndpointAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.echo.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, err.Error())
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(shutdownCtx, err.Error())
		}
	}

	app.logger.Info(shutdownCtx, "server stopped")
}
