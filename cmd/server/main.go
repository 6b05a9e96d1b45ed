package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jharmon96/inkwell/internal/api"
	"github.com/jharmon96/inkwell/internal/app"
	"github.com/jharmon96/inkwell/internal/app/maintenance"
	iauth "github.com/jharmon96/inkwell/internal/auth"
	"github.com/jharmon96/inkwell/internal/database"
	"github.com/jharmon96/inkwell/internal/services"
	"github.com/jharmon96/inkwell/pkg/logger"
	"github.com/jharmon96/inkwell/pkg/mail"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("inkwell-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	var mailer mail.Mailer
	if cfg.Email.SMTP.Enabled {
		mailer, err = mail.NewSMTPMailer(cfg.Email.SMTPSettings())
		if err != nil {
			return fmt.Errorf("initialise mailer: %w", err)
		}
	} else {
		log.Warn("smtp disabled; one-time passcodes will not be delivered")
	}

	tokenService, err := iauth.NewTokenService(iauth.TokenConfig{
		Secret:     cfg.Auth.JWT.Secret,
		Issuer:     cfg.Auth.JWT.Issuer,
		AccessTTL:  cfg.Auth.JWT.AccessTTL,
		RefreshTTL: cfg.Auth.JWT.RefreshTTL,
	})
	if err != nil {
		return fmt.Errorf("initialise token service: %w", err)
	}

	otpService, err := iauth.NewOTPService(db, mailer,
		iauth.WithOTPTTL(cfg.Auth.OTP.TTL),
		iauth.WithOTPAttempts(cfg.Auth.OTP.Attempts),
	)
	if err != nil {
		return fmt.Errorf("initialise otp service: %w", err)
	}

	credentialVerifier, err := iauth.NewCredentialVerifier(db)
	if err != nil {
		return fmt.Errorf("initialise credential verifier: %w", err)
	}

	reconciler, err := iauth.NewReconciler(db)
	if err != nil {
		return fmt.Errorf("initialise reconciler: %w", err)
	}

	var googleVerifier iauth.IdentityVerifier
	if cfg.Google.Enabled {
		googleVerifier = iauth.NewGoogleVerifier(iauth.GoogleVerifierOptions{
			IssuerURL: cfg.Google.IssuerURL,
		})
	}

	authService, err := services.NewAuthService(db, otpService, tokenService, credentialVerifier, googleVerifier, reconciler)
	if err != nil {
		return fmt.Errorf("initialise auth service: %w", err)
	}

	blogService, err := services.NewBlogService(db)
	if err != nil {
		return fmt.Errorf("initialise blog service: %w", err)
	}

	cleaner := maintenance.NewCleaner(db)
	if err := cleaner.Start(); err != nil {
		return fmt.Errorf("start maintenance jobs: %w", err)
	}
	defer func() {
		stopCtx := cleaner.Stop()
		if err := cleaner.RunOnce(stopCtx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}()

	router, err := api.NewRouter(db, tokenService, authService, blogService)
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database.DatabaseSettings())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(cfg.Database.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("fetch underlying database handle", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("close database", zap.Error(err))
	}
}
