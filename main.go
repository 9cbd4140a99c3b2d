package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apiproxy "github.com/wayfarergame/wayfarer/api/proxy"
	"github.com/wayfarergame/wayfarer/audit"
	"github.com/wayfarergame/wayfarer/cache"
	"github.com/wayfarergame/wayfarer/config"
	dbadapter "github.com/wayfarergame/wayfarer/db"
	mw "github.com/wayfarergame/wayfarer/middleware"
	"github.com/wayfarergame/wayfarer/model"
	"github.com/wayfarergame/wayfarer/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly when upstream keys are missing: the proxy will forward
	// unauthenticated requests and upstreams will reject them.
	if cfg.Proxy.OpenRouterKey == "" {
		logger.Warn("proxy.openrouter_key is not set")
	}
	if cfg.Proxy.PlacesKey == "" {
		logger.Warn("proxy.places_key is not set")
	}

	// ---- Audit store ----
	db, err := dbadapter.Open(cfg.Audit)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(nil)
	logger.Info("audit store initialized", zap.String("mode", cfg.Audit.Mode))

	// ---- Cache ----
	c, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	logger.Info("cache initialized")

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	retention := time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour
	sched.Every("audit_retention", time.Hour, func() {
		auditSvc.Sweep(retention)
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(apiproxy.MethodNotAllowed)
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))
	r.Use(mw.CORS(cfg.Security.AllowedOrigins))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- Proxy routes ----
	proxyH := apiproxy.NewHandler(cfg.Proxy, c, auditSvc, logger)
	api := r.Group("/api")
	{
		api.POST("/openrouter", proxyH.OpenRouter)
		api.POST("/places-search", proxyH.PlacesSearch)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
