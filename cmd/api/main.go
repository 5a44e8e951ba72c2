package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"checkin/internal/attendance"
	"checkin/internal/auth"
	"checkin/internal/badge"
	"checkin/internal/cloudinary"
	"checkin/internal/config"
	"checkin/internal/httpapi"
	"checkin/internal/httpmiddleware"
	"checkin/internal/queue"
	"checkin/internal/reconcile"
	"checkin/internal/roster"
	"checkin/internal/sheet"
	"checkin/internal/store"
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
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	repo := attendance.NewRepository(db.Client)
	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	probes := map[string]httpapi.Probe{"db": db.Healthy}

	var q queue.Queue
	if cfg.QueueBackend == "redis" {
		redisClient := store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
		probes["redis"] = redisClient.Healthy
		log.Printf("publishing scan events to redis %s", cfg.RedisAddr)
	} else {
		// no worker process; record events in-process. Deferred after
		// db.Close, so the recorder is drained before the pool goes away.
		mem := queue.NewInMemory(256)
		q = mem
		stopRecorder := attendance.NewRecorder(repo).Start(ctx, mem)
		defer stopRecorder()
	}

	st := roster.NewStore()
	svc := attendance.NewService(st, cfg.ScanCooldown).WithQueue(q)
	if cfg.RosterFile != "" {
		records, err := roster.ReadFile(cfg.RosterFile)
		if err != nil {
			return fmt.Errorf("load roster: %w", err)
		}
		svc.LoadRoster(records)
		log.Printf("loaded %d attendees from %s", st.Len(), cfg.RosterFile)
	}

	enc := badge.Retrying(badge.NewQREncoder(), cfg.BadgeRetries, cfg.BadgeBackoff)
	h := &httpapi.Handler{
		Service:  svc,
		Stations: repo,
		Events:   repo,
		Badges:   badge.NewRenderer(enc, cfg.BadgeTitle),
		Tokens: httpapi.TokenConfig{
			Issuer:     cfg.JWTIssuer,
			SigningKey: cfg.JWTSigningKey,
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
		},
		Probes: probes,
	}

	if cfg.SyncConfigured() {
		syncer := reconcile.New(st, sheet.New(cfg.SheetURL), reconcile.Options{
			Interval:     cfg.SyncInterval,
			ConfirmDelay: cfg.SyncConfirmDelay,
		})
		svc.WithPusher(syncer)
		h.Sync = syncer
		if err := syncer.Start(ctx); err != nil {
			return fmt.Errorf("start sync: %w", err)
		}
		defer syncer.Stop()
		log.Printf("syncing roster with sheet every %s", cfg.SyncInterval)
	} else {
		log.Println("sheet sync not configured (SHEET_URL not set)")
	}

	if cfg.CloudinaryEnabled() {
		h.Publisher = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition", "Retry-After", "X-Badges-Rendered", "X-Badges-Failed"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	h.Register(r, limiter.GinMiddleware(httpmiddleware.ByStation(auth.StationID)))

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // badge PDFs for large rosters
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}
	log.Println("Server exited")
	return nil
}

// securityHeaders sets conservative browser headers.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
