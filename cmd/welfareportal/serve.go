package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"welfareportal/internal/chat"
	"welfareportal/internal/db"
	"welfareportal/internal/guard"
	"welfareportal/internal/notify"
	"welfareportal/internal/review"
	"welfareportal/internal/server"
	"welfareportal/internal/storage"
	"welfareportal/internal/store"
	"welfareportal/internal/wizard"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()

	config, err := loadConfig()
	if err != nil {
		return err
	}

	if err := validateServeConfig(config); err != nil {
		return err
	}

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return err
	}

	cognitoClient := cognitoidentityprovider.NewFromConfig(awsConfig)
	blobs := storage.NewS3Storage(s3.NewFromConfig(awsConfig), config.S3BucketName)

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	schemeRepo := store.NewSchemeRepository(pool)
	documentRepo := store.NewSchemeDocumentRepository(pool)
	applicationRepo := store.NewApplicationRepository(pool)
	historyRepo := store.NewStatusHistoryRepository(pool)
	userRepo := store.NewUserRepository(pool)

	dispatcher := notify.NewDispatcher(
		notify.Config{
			FromEmail:    config.NotifyFromEmail,
			EmailEnabled: config.NotifyEmailEnabled,
			SMSEnabled:   config.NotifySMSEnabled,
		},
		logger,
		userRepo,
		ses.NewFromConfig(awsConfig),
		sns.NewFromConfig(awsConfig),
	)

	assemblerOpts := make([]wizard.AssemblerOption, 0, 1)
	if config.RedisAddr != "" {
		redisClient, err := guard.Connect(ctx, config.RedisAddr, config.RedisPassword, config.RedisDB)
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()

		ttl := time.Duration(config.SubmissionGuardTTLSec) * time.Second
		assemblerOpts = append(assemblerOpts, wizard.WithGuard(guard.NewRedisGuard(redisClient, ttl)))
		logger.WithField("ttl", ttl).Info("submission guard enabled")
	}

	// A nil Generator makes the assistant answer 503 instead of failing start-up
	var generator chat.Generator
	if config.GeminiAPIKey != "" {
		gemini, err := chat.NewGeminiGenerator(ctx, config.GeminiAPIKey, config.GeminiModel)
		if err != nil {
			return err
		}
		generator = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, chat assistant disabled")
	}

	drafts := wizard.NewDraftStore(time.Duration(config.DraftIdleTTLSec) * time.Second)

	jwkCache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return fmt.Errorf("failed to initialize jwk cache: %w", err)
	}

	jwksURL := fmt.Sprintf("%s/.well-known/jwks.json", config.CognitoIssuerURL)

	err = jwkCache.Register(ctx, jwksURL)
	if err != nil {
		return fmt.Errorf("failed to register cognito jwks with cache: %w", err)
	}

	srv, err := server.New(config, logger, server.Deps{
		Cognito:      cognitoClient,
		Tokens:       server.NewJWKSVerifier(jwkCache, jwksURL, config.AdminGroupName),
		Schemes:      schemeRepo,
		Documents:    documentRepo,
		Applications: applicationRepo,
		History:      historyRepo,
		Users:        userRepo,
		Drafts:       drafts,
		Assembler:    wizard.NewAssembler(logger, blobs, applicationRepo, assemblerOpts...),
		Reviewer:     review.NewReviewer(logger, applicationRepo, historyRepo, dispatcher),
		Assistant:    chat.NewAssistant(logger, schemeRepo, generator),
		Presigner:    blobs,
		Health:       pool,
	})
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
