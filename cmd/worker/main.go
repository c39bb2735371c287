package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Hariiikrishnan/qr-attendance-backend/internal/audit"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/config"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/queue"
	"github.com/Hariiikrishnan/qr-attendance-backend/internal/store"
)

// Worker drains the audit queue and persists events for later review. The
// request path publishes fire-and-forget, so this is the only component that
// writes the audit trail.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendance:audit")
	}

	repo := audit.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("audit worker started, waiting for messages...")
	for msg := range messages {
		if msg.Kind != audit.KindScan && msg.Kind != audit.KindSessionClose {
			continue
		}

		evt, err := audit.Decode(msg.Body)
		if err != nil {
			log.Printf("decode %s event failed: %v", msg.Kind, err)
			continue
		}

		if err := repo.Insert(ctx, evt); err != nil {
			log.Printf("persist %s event %s failed: %v", evt.Kind, evt.ID, err)
			continue
		}
		log.Printf("recorded %s event for session %s", evt.Kind, evt.SessionID)
	}

	log.Println("worker stopped")
}
