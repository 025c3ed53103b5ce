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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/dugsihub/dugsihub/backend/go-services/handlers"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/auth"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/config"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/database"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/document/repository"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/document/service"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/oidc"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/sessions"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/storage"
	subjectrepo "github.com/dugsihub/dugsihub/backend/go-services/internal/subject/repository"
	subjectservice "github.com/dugsihub/dugsihub/backend/go-services/internal/subject/service"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/users"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/logger"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/metrics"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/response"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	logger.Configure(cfg.Log.Format)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	response.SetVerbose(!cfg.Server.IsProduction())
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	logger.Infof("config loaded: env=%s auth=%s storage=%s mongo=%v redis=%v minio=%v",
		cfg.Server.Environment, cfg.Auth.Mode, cfg.Storage.Mode, cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Storage.MinIO.Enabled())

	a := &app{cfg: cfg}

	if addr := cfg.Redis.Addr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis ping failed (%s): %v; continuing without redis", addr, err)
			_ = client.Close()
		} else {
			logger.Infof("connected to redis at %s", addr)
			a.redis = client
			defer func() { _ = client.Close() }()
		}
	}
	bl := sessions.NewBlacklist(a.redis, "")

	var repo repository.Repository
	var subjects subjectrepo.Repository
	var usersSvc *users.Service
	var sessionsSvc *sessions.Service
	if a.redis != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(a.redis, "session:refresh:"))
	}

	if cfg.MongoDB.URI != "" {
		pool := database.NewPool(cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.Timeout, cfg.MongoDB.ConnectAttempts)
		a.pool = pool
		defer func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = pool.Close(cctx)
		}()

		docCol, err := pool.Collection(ctx, "documents")
		if err != nil {
			return fmt.Errorf("mongo: %w", err)
		}
		mrepo := repository.NewMongoRepo(docCol)
		if err := mrepo.EnsureIndexes(ctx); err != nil {
			logger.Warnf("documents indexes: %v", err)
		}
		repo = mrepo

		subjCol, err := pool.Collection(ctx, "subjects")
		if err != nil {
			return fmt.Errorf("mongo: %w", err)
		}
		subjRepo := subjectrepo.NewMongoRepo(subjCol)
		if err := subjRepo.EnsureIndexes(ctx); err != nil {
			logger.Warnf("subjects indexes: %v", err)
		}
		subjects = subjRepo

		usersCol, err := pool.Collection(ctx, "users")
		if err != nil {
			return fmt.Errorf("mongo: %w", err)
		}
		urepo := users.NewMongoUserRepository(usersCol)
		if err := urepo.EnsureIndexes(ctx); err != nil {
			logger.Warnf("users indexes: %v", err)
		}
		usersSvc = users.NewService(urepo)

		if sessionsSvc == nil {
			sessCol, err := pool.Collection(ctx, "sessions")
			if err != nil {
				return fmt.Errorf("mongo: %w", err)
			}
			srepo := sessions.NewMongoRepository(sessCol)
			if err := srepo.EnsureIndexes(ctx); err != nil {
				logger.Warnf("sessions indexes: %v", err)
			}
			sessionsSvc = sessions.NewService(srepo)
		}
	} else {
		logger.Warnf("MONGODB_URI not set: documents are kept in memory and lost on restart")
		repo = repository.NewMemoryRepo()
		subjects = subjectrepo.NewMemoryRepo()
	}

	sink, err := storage.NewSink(ctx, storage.Config{
		MinIO: storage.MinIOConfig{
			Endpoint:  cfg.Storage.MinIO.Endpoint,
			AccessKey: cfg.Storage.MinIO.AccessKey,
			SecretKey: cfg.Storage.MinIO.SecretKey,
			UseSSL:    cfg.Storage.MinIO.UseSSL,
			Bucket:    cfg.Storage.MinIO.Bucket,
			Region:    cfg.Storage.MinIO.Region,
			PublicURL: cfg.Storage.MinIO.PublicURL,
		},
		LocalDir:   cfg.Storage.LocalDir,
		PublicPath: cfg.Storage.PublicPath,
	})
	if err != nil {
		return fmt.Errorf("blob storage: %w", err)
	}
	a.sink = sink

	validate := validator.New()
	a.subjects = subjectservice.New(subjects, validate)
	a.docs = service.New(repo, sink, validate, service.Config{
		MaxUploadBytes:  cfg.Storage.MaxUploadBytes,
		Inline:          cfg.Storage.Mode == "inline",
		InlineMaxBytes:  cfg.Storage.InlineMaxBytes,
		PageSize:        cfg.Papers.PageSize,
		DerivePageCount: cfg.Papers.DerivePageCount,
	})

	a.resolver, err = newResolver(ctx, cfg, bl)
	if err != nil {
		return err
	}
	if usersSvc != nil && sessionsSvc != nil {
		a.authH = handlers.NewAuthHandler(cfg, usersSvc, sessionsSvc, bl)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting papers service on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Infof("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

func newResolver(ctx context.Context, cfg *config.Config, bl *sessions.Blacklist) (auth.Resolver, error) {
	if cfg.Auth.Mode != "oidc" {
		return auth.NewJWTResolver(cfg.JWT.Secret, cfg.Auth.CookieName, bl), nil
	}
	var verifier oidc.TokenVerifier
	if cfg.Keycloak.URL != "" {
		v, err := oidc.NewVerifier(ctx, cfg.Keycloak.Issuer(), cfg.Keycloak.ClientID)
		if err != nil {
			if !cfg.Auth.AllowInsecureToken {
				return nil, fmt.Errorf("oidc verifier: %w", err)
			}
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifier = v
		}
	}
	if verifier == nil {
		logger.Warn("enabling insecure OIDC verifier (integration mode)")
		verifier = oidc.NewInsecureVerifier()
	}
	return auth.NewOIDCResolver(verifier, cfg.Auth.CookieName, bl), nil
}
