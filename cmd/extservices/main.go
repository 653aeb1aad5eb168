package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	auditfile "3tcapital/ms_external_services/internal/adapters/audit/file"
	auditpg "3tcapital/ms_external_services/internal/adapters/audit/postgres"
	"3tcapital/ms_external_services/internal/adapters/extservice/httpcall"
	"3tcapital/ms_external_services/internal/adapters/extservice/sftpcall"
	auditloghttp "3tcapital/ms_external_services/internal/adapters/http/auditlog"
	extservicehttp "3tcapital/ms_external_services/internal/adapters/http/extservice"
	healthhttp "3tcapital/ms_external_services/internal/adapters/http/health"
	appext "3tcapital/ms_external_services/internal/application/extservice"
	apphealth "3tcapital/ms_external_services/internal/application/health"
	"3tcapital/ms_external_services/internal/core/audit"
	"3tcapital/ms_external_services/internal/infrastructure/config"
	"3tcapital/ms_external_services/internal/infrastructure/database"
	infrahttp "3tcapital/ms_external_services/internal/infrastructure/http"
	"3tcapital/ms_external_services/internal/infrastructure/http/middleware"
	"3tcapital/ms_external_services/internal/infrastructure/http/server"
	"3tcapital/ms_external_services/internal/infrastructure/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "service stopped: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.App.Name, cfg.Log.Level, cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Audit sink resolution: postgres when a database is configured, an
	// NDJSON file as fallback, a no-op sink otherwise.
	var (
		sink      audit.Sink
		auditRepo audit.Repository
	)
	switch {
	case !cfg.Audit.Enabled:
		sink = auditfile.NoopSink{}
		log.Warn("Audit trail disabled in configuration, external calls will not be recorded")
	case cfg.Database.Host != "":
		pool, err := database.NewPool(ctx, database.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			Database:        cfg.Database.Database,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		if err := database.RunMigrations(ctx, pool, log); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		repo := auditpg.NewRepository(pool, log)
		sink = repo
		auditRepo = repo
		log.Info("Audit trail enabled", "store", "postgres", "database", cfg.Database.Database)
	case cfg.Audit.FilePath != "":
		fileSink, err := auditfile.NewSink(cfg.Audit.FilePath)
		if err != nil {
			return fmt.Errorf("open audit file: %w", err)
		}
		defer fileSink.Close()
		sink = fileSink
		log.Info("Audit trail enabled", "store", "file", "path", cfg.Audit.FilePath)
	default:
		sink = auditfile.NoopSink{}
		log.Warn("Audit trail enabled but no store configured, external calls will not be recorded",
			"database_configured", false,
			"file_configured", false,
		)
	}

	httpClient := httpcall.NewClient(httpcall.Config{
		ServiceName: cfg.External.HTTP.ServiceName,
		MaxBodySize: cfg.Audit.MaxBodySize,
	}, infrahttp.NewClient(&infrahttp.ClientConfig{Timeout: cfg.External.HTTP.Timeout}), sink, log)

	var transferor appext.FileTransferor
	if cfg.External.SFTP.Host != "" {
		sftpClient := sftpcall.NewClient(sftpcall.Config{
			ServiceName:    cfg.External.SFTP.ServiceName,
			Host:           cfg.External.SFTP.Host,
			Port:           cfg.External.SFTP.Port,
			Username:       cfg.External.SFTP.Username,
			Password:       cfg.External.SFTP.Password,
			ConnectTimeout: cfg.External.SFTP.ConnectTimeout,
		}, sftpcall.NewSSHDialer(nil), sink, log)
		transferor = sftpClient
		log.Info("SFTP target configured",
			"host", cfg.External.SFTP.Host,
			"port", cfg.External.SFTP.Port,
			"service_name", cfg.External.SFTP.ServiceName,
		)
	} else {
		log.Info("SFTP target not configured, SFTP endpoints will return 503")
	}

	extService := appext.NewService(httpClient, transferor, log)
	defer func() {
		if err := extService.Close(); err != nil {
			log.Error("failed to close SFTP session", "error", err)
		}
	}()
	extHandler := extservicehttp.NewHandler(extService, log)

	healthService := apphealth.NewService(apphealth.Metadata{
		Service:     cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
	})
	healthHandler := healthhttp.NewHandler(healthService)

	var authenticator *middleware.JWTAuthenticator
	if cfg.Auth.Enabled {
		authenticator, err = middleware.NewJWTAuthenticator(cfg.Auth, log)
		if err != nil {
			return fmt.Errorf("create authenticator: %w", err)
		}
		defer authenticator.Close()
	}

	opts := server.Options{
		Config:              cfg,
		Logger:              log,
		HealthHandler:       healthHandler.Status,
		PerformCallHandler:  extHandler.PerformCall,
		UploadHandler:       extHandler.Upload,
		DownloadHandler:     extHandler.Download,
		ValidatePathHandler: extHandler.ValidatePath,
		Authenticator:       authenticator,
	}
	if auditRepo != nil {
		opts.ListCallsHandler = auditloghttp.NewHandler(auditRepo, log).ListCalls
	}

	srv, err := server.New(opts)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	log.Info("Starting HTTP server", "port", cfg.HTTP.Port)
	return srv.Run(ctx)
}
