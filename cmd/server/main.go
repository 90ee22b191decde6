// meetkit API server.
//
// @title        meetkit API
// @version      1.0
// @description  Multi-tenant collaboration-session platform.
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meetkit/meetkit/internal/api"
	"github.com/meetkit/meetkit/internal/core/service"
	"github.com/meetkit/meetkit/internal/infrastructure/broker"
	"github.com/meetkit/meetkit/internal/infrastructure/config"
	mongodb "github.com/meetkit/meetkit/internal/infrastructure/db/mongo"
	redisdb "github.com/meetkit/meetkit/internal/infrastructure/db/redis"
	"github.com/meetkit/meetkit/internal/infrastructure/objectstore"
	"github.com/meetkit/meetkit/internal/infrastructure/roomservice"
	"github.com/meetkit/meetkit/internal/pkg/secrets"
	"github.com/meetkit/meetkit/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{})
		fallback := logger.Get()
		fallback.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	vault, err := secrets.NewVault(cfg.MasterKey)
	if err != nil {
		log.Fatal().Err(err).Msg("master key")
	}

	// --- Infrastructure ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect")
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect")
	}
	defer func() {
		_ = rdb.Close()
	}()

	publisher, err := broker.Connect(broker.Config{
		URL:      cfg.Broker.URL,
		Exchange: cfg.Broker.Exchange,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("broker connect")
	}
	defer func() {
		_ = publisher.Close()
	}()

	// --- Repositories ---
	userRepo := mongodb.NewUserRepository(db)
	projectRepo := mongodb.NewProjectRepository(db)
	deviceRepo := mongodb.NewDeviceRepository(db)
	keyRepo := mongodb.NewApiKeyRepository(db)
	sessionRepo := mongodb.NewSessionRepository(db)
	egressRepo := mongodb.NewEgressRepository(db)
	loginSessions := redisdb.NewLoginSessionStore(rdb)

	for name, ensure := range map[string]func(context.Context) error{
		"users":    userRepo.EnsureIndexes,
		"projects": projectRepo.EnsureIndexes,
		"devices":  deviceRepo.EnsureIndexes,
		"api_keys": keyRepo.EnsureIndexes,
		"sessions": sessionRepo.EnsureIndexes,
		"egresses": egressRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Fatal().Err(err).Str("collection", name).Msg("ensure indexes")
		}
	}

	// --- External clients ---
	rooms := roomservice.NewClient(cfg.Room.BaseURL, log)
	store := objectstore.NewSignedURLService(cfg.Storage.Endpoint, cfg.Storage.UseSSL)

	// --- Core services ---
	tokens := service.NewTokenAuthority(keyRepo, userRepo, loginSessions, vault, cfg.Token.LoginTTL, cfg.Token.RefreshTTL, log)
	auth := service.NewAuthService(userRepo, loginSessions, tokens, cfg.Token.RefreshTTL, log)
	projects := service.NewProjectService(projectRepo, deviceRepo, keyRepo, tokens, vault, log)

	watchers := service.NewWatcherRegistry(log)
	reconciler := service.NewEgressReconciler(egressRepo, rooms, log)
	sessions := service.NewSessionOrchestrator(
		sessionRepo, egressRepo, rooms, store, publisher,
		watchers, reconciler, vault,
		service.OrchestratorConfig{
			PollInterval: cfg.Watcher.PollInterval,
			MaxMisses:    cfg.Watcher.MaxMisses,
			EgressGrace:  cfg.Watcher.EgressGrace,
			SignedURLTTL: cfg.Storage.URLTTL,
		},
		log,
	)
	topics := service.NewTopicAuthorizer(tokens, projectRepo, cfg.Broker.Vhost, cfg.Broker.Exchange, log)

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Tokens:      tokens,
		Auth:        auth,
		Projects:    projects,
		Sessions:    sessions,
		Broker:      topics,
		ProjectRepo: projectRepo,
		Watchers:    watchers,
		Mongo:       db,
		Redis:       rdb,
		Log:         log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	// Block until interrupted, then drain: HTTP first so no new sessions
	// spawn watchers, then the watchers themselves.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	watchers.Shutdown()
	log.Info().Msg("server stopped")
}
