package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Hariiikrishnan/qr-attendance-backend/internal/attendance"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/config"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/httpapi"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/httpmiddleware"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/identity"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/queue"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/roster"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/session"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/store"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/token"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	var db *store.DB
	var err error
	if cfg.StoreBackend != "memory" {
		db, err = store.NewDB(cfg.DatabaseURL)
		if db == nil {
			log.Fatalf("db open failed: %v", err)
		}
		if err != nil {
			// Ping failure only; the pool retries on first use.
			log.Printf("warning: db not reachable: %v", err)
		}
		defer func() {
			_ = db.Close()
		}()
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	// Replay cache: Redis shares the window across replicas, memory is
	// per-process.
	var replay token.ReplayCache
	if cfg.ReplayBackend == "redis" {
		replay = token.NewRedisReplay(redisClient, cfg.ReplayTTL)
	} else {
		memReplay := token.NewMemoryReplay(cfg.ReplayTTL)
		defer memReplay.Stop()
		replay = memReplay
	}
	tokens := token.NewService(cfg.QRSecret, replay)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendance:audit")
	}

	var sessionStore session.Store
	var recordStore attendance.Store
	var rosterStore roster.Store
	if cfg.StoreBackend == "memory" {
		sessionStore = session.NewMemoryStore()
		recordStore = attendance.NewMemoryStore()
		rosterStore = roster.NewMemoryStore()
		log.Println("using in-memory stores (dev mode)")
	} else {
		sessionStore = session.NewPostgresStore(db.Client)
		recordStore = attendance.NewPostgresStore(db.Client)
		rosterStore = roster.NewPostgresStore(db.Client)
	}

	rosters := roster.NewService(rosterStore)
	recorder := attendance.NewRecorder(recordStore)
	sessions := session.NewService(sessionStore, tokens, cfg.DefaultRadiusM)
	sessions.SetFinalizer(attendance.NewSweeper(recordStore, rosters))

	idp := identity.New(cfg.IdentityURL, cfg.IdentitySkip)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := cfg.StoreBackend == "memory" || db != nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	api := httpapi.New(cfg, sessions, recorder, rosters, tokens, idp, q)
	api.Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
