package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dugsihub/dugsihub/backend/go-services/handlers"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/auth"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/config"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/database"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/document/handler"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/document/service"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/storage"
	subjecthandler "github.com/dugsihub/dugsihub/backend/go-services/internal/subject/handler"
	subjectservice "github.com/dugsihub/dugsihub/backend/go-services/internal/subject/service"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/logger"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/middleware"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/middleware/requestid"
)

var startTime = time.Now()

// app is everything the router needs. Optional dependencies are nil when not
// configured.
type app struct {
	cfg      *config.Config
	docs     *service.Service
	subjects *subjectservice.Service
	sink     storage.Sink
	resolver auth.Resolver
	authH    *handlers.AuthHandler
	pool     *database.Pool
	redis    *redis.Client
	metrics  http.Handler
}

type pinger interface {
	Ping(ctx context.Context) error
}

func newRouter(a *app) *gin.Engine {
	r := gin.New()
	r.Use(requestid.Middleware(), logger.GinMiddleware(), gin.Recovery(), cors())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", a.ready)
	if a.metrics == nil {
		a.metrics = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(a.metrics))
	handlers.RegisterSwagger(r)

	if local, ok := a.sink.(*storage.LocalSink); ok && !a.cfg.Server.IsProduction() {
		r.Static(a.cfg.Storage.PublicPath, local.Root())
	}

	authMW := middleware.AuthMiddleware(a.resolver)
	docMW := []gin.HandlerFunc{middleware.RequestTimeout(a.cfg.Server.RequestTimeout), authMW}
	if rl := a.rateLimiter(); rl != nil {
		docMW = append(docMW, rl)
	}
	handler.RegisterDocumentRoutes(r, a.docs, docMW...)

	if a.subjects != nil {
		subjMW := []gin.HandlerFunc{middleware.RequestTimeout(a.cfg.Server.RequestTimeout)}
		if rl := a.rateLimiter(); rl != nil {
			subjMW = append(subjMW, rl)
		}
		subjecthandler.RegisterSubjectRoutes(r, a.subjects, authMW, subjMW...)
	}

	if a.authH != nil {
		var authMWs []gin.HandlerFunc
		if rl := a.rateLimiter(); rl != nil {
			authMWs = append(authMWs, rl)
		}
		a.authH.Register(r, authMWs...)
		a.authH.RegisterMe(r, authMW)
	} else {
		logger.Warnf("auth handlers not registered because user/sessions services are unavailable")
		r.GET("/api/v1/me", authMW, func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true, "principal": middleware.Principal(c)})
		})
	}
	return r
}

func (a *app) rateLimiter() gin.HandlerFunc {
	rl := a.cfg.RateLimit
	if !rl.Enabled {
		return nil
	}
	if rl.UseRedis && a.redis != nil {
		return middleware.RedisRateLimitMiddleware(a.redis, rl.RPS, rl.Burst, time.Duration(rl.WindowSeconds)*time.Second)
	}
	return middleware.RateLimitMiddleware(rl.RPS, rl.Burst)
}

// ready returns 200 only when the record store and blob sink answer.
func (a *app) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	ok := true
	deps := gin.H{}
	if a.pool != nil {
		if err := a.pool.Ping(ctx); err != nil {
			logger.Warnf("ready: mongo ping failed: %v", err)
			deps["mongo"] = false
			ok = false
		} else {
			deps["mongo"] = true
		}
	} else {
		deps["mongo"] = "memory"
	}
	if a.sink == nil {
		deps["storage"] = a.cfg.Storage.Mode == "inline"
		ok = ok && a.cfg.Storage.Mode == "inline"
	} else if p, isPinger := a.sink.(pinger); isPinger {
		if err := p.Ping(ctx); err != nil {
			logger.Warnf("ready: storage ping failed: %v", err)
			deps["storage"] = false
			ok = false
		} else {
			deps["storage"] = true
		}
	} else {
		deps["storage"] = true
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			deps["redis"] = false
			ok = false
		} else {
			deps["redis"] = true
		}
	}

	status, label := http.StatusOK, "ready"
	if !ok {
		status, label = http.StatusServiceUnavailable, "not_ready"
	}
	c.JSON(status, gin.H{"status": label, "deps": deps, "uptime": time.Since(startTime).String()})
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, "+requestid.HeaderKey)
		h.Set("Access-Control-Expose-Headers", "Content-Length, Content-Disposition, "+requestid.HeaderKey)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
