// Command webmaild serves the webmail HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rbaliyan/webmail"
	"github.com/rbaliyan/webmail/config"
	"github.com/rbaliyan/webmail/httpapi"
	"github.com/rbaliyan/webmail/relay"
	"github.com/rbaliyan/webmail/store/attachment/s3"
	"github.com/rbaliyan/webmail/store/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("webmaild exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlx.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	pg := postgres.New(db, postgres.WithLogger(logger))

	svcOpts := []webmail.Option{
		webmail.WithStore(pg),
		webmail.WithLogger(logger),
		webmail.WithSigningKey(cfg.Webhook.SigningKey),
		webmail.WithTracing(cfg.Otel.Tracing),
		webmail.WithMetrics(cfg.Otel.Metrics),
	}
	if cfg.SMTP.Host != "" {
		svcOpts = append(svcOpts, webmail.WithRelay(relay.NewSMTP(
			cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Account, cfg.SMTP.Password,
			relay.WithLogger(logger),
		)))
	}

	svc, err := webmail.NewService(svcOpts...)
	if err != nil {
		return err
	}
	if err := svc.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := svc.Close(shutdownCtx); err != nil {
			logger.Error("service close failed", "error", err)
		}
	}()

	apiOpts := []httpapi.Option{httpapi.WithLogger(logger)}
	if cfg.S3.Bucket != "" {
		uploader, err := s3.New(ctx,
			s3.WithBucket(cfg.S3.Bucket),
			s3.WithPrefix(cfg.S3.Prefix),
			s3.WithRegion(cfg.S3.Region),
			s3.WithEndpoint(cfg.S3.Endpoint),
			s3.WithPathStyle(cfg.S3.PathStyle),
			s3.WithPublicBaseURL(cfg.S3.PublicBaseURL),
			s3.WithStaticCredentials(cfg.S3.AccessKey, cfg.S3.SecretKey),
			s3.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		apiOpts = append(apiOpts, httpapi.WithUploader(uploader))
	}

	api := httpapi.New(svc, apiOpts...)

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Listen)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	return nil
}
