// @title                      Accounts API
// @version                    1.0
// @description                Registration, JWT login and profile management for the web app.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
// @description                Type "Bearer" followed by a space and the access token.
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

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-service/internal/api"
	"github.com/99minutos/accounts-service/internal/core/ports"
	"github.com/99minutos/accounts-service/internal/core/service"
	"github.com/99minutos/accounts-service/internal/core/validation"
	"github.com/99minutos/accounts-service/internal/infrastructure/crypto"
	"github.com/99minutos/accounts-service/internal/infrastructure/db/gormstore"
	mongostore "github.com/99minutos/accounts-service/internal/infrastructure/db/mongo"
	redisstore "github.com/99minutos/accounts-service/internal/infrastructure/db/redis"
	"github.com/99minutos/accounts-service/internal/pkg/config"
	"github.com/99minutos/accounts-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

var (
	buildVersion = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

// accountStore is what both backends provide.
type accountStore interface {
	ports.AccountRepository
	ports.Pinger
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "accounts-service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "accounts-service",
	})
	log.Info().
		Str("version", buildVersion).
		Str("commit", buildCommit).
		Str("store", cfg.Store.Driver).
		Msg("starting")

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	redisClient, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()
	blacklist := redisstore.NewTokenBlacklist(redisClient)

	hasher, err := crypto.NewHasher(crypto.Config{
		Algorithm:  cfg.Password.Hasher,
		BcryptCost: cfg.Password.BcryptCost,
	})
	if err != nil {
		return err
	}

	policy, err := passwordPolicy(cfg.Password)
	if err != nil {
		return err
	}
	validator := validation.New(store, policy)
	tokens := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	})

	router, err := api.NewRouter(api.Deps{
		Log:            log,
		AuthService:    service.NewAuthService(store, validator, hasher, tokens, blacklist, log),
		AccountService: service.NewAccountService(store, validator, log),
		LiveValidator:  validator,
		Tokens:         tokens,
		HealthChecks: map[string]ports.Pinger{
			"database": store,
			"redis":    blacklist,
		},
		RequireVerified: cfg.Auth.RequireVerified,
		DocsEnabled:     cfg.Docs.Enabled,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := router.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("received interruption signal, shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("shutdown complete")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (accountStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		client, repo, err := mongostore.OpenAccounts(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		db, err := gormstore.Open(ctx, gormstore.Config{
			Driver:          cfg.Store.Driver,
			DSN:             cfg.Store.DSN,
			AutoMigrate:     cfg.Store.AutoMigrate,
			LogLevel:        cfg.Store.LogLevel,
			SlowThreshold:   cfg.Store.SlowQuery,
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			MaxIdleConns:    cfg.Store.MaxIdleConns,
			ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return gormstore.NewAccountRepository(db), func() { _ = gormstore.Close(db) }, nil
	}
}

func passwordPolicy(cfg config.PasswordConfig) (validation.PasswordPolicy, error) {
	policy := validation.PasswordPolicy{
		MinLength:       cfg.MinLength,
		CheckCommon:     cfg.CheckCommon,
		CheckNumeric:    cfg.CheckNumeric,
		CheckSimilarity: cfg.CheckSimilarity,
	}
	if cfg.CommonListFile == "" {
		return policy, nil
	}

	f, err := os.Open(cfg.CommonListFile)
	if err != nil {
		return policy, fmt.Errorf("password policy: %w", err)
	}
	defer f.Close()
	return policy.WithCommonPasswords(f)
}
