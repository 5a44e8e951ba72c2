package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"checkin/internal/attendance"
	"checkin/internal/config"
	"checkin/internal/queue"
	"checkin/internal/store"
)

// Worker drains scan events published by API instances into the audit log.
func main() {
	cfg := config.Load()
	if cfg.QueueBackend != "redis" {
		log.Fatalf("worker needs QUEUE_BACKEND=redis, got %q", cfg.QueueBackend)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	repo := attendance.NewRepository(db.Client)
	if err := repo.Migrate(ctx); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis %s not reachable yet, will keep retrying", cfg.RedisAddr)
	}

	log.Println("worker started, waiting for scan events...")
	if err := attendance.NewRecorder(repo).Run(ctx, queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)); err != nil {
		log.Printf("worker stopped: %v", err)
		return
	}
	log.Println("worker stopped")
}
