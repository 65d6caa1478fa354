package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sneakwatch/go-release-pipeline/internal/config"
	kafkax "github.com/sneakwatch/go-release-pipeline/internal/kafka"
	"github.com/sneakwatch/go-release-pipeline/internal/notify"
	"github.com/sneakwatch/go-release-pipeline/internal/postgres"
	"github.com/sneakwatch/go-release-pipeline/internal/redisx"
	"github.com/sneakwatch/go-release-pipeline/internal/releases"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB (preferences only)
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis (throttle windows + event dedup)
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Preferences cache, seeded before consuming
	prefs := notify.NewPrefsCache(&notify.PGPrefsStore{DB: db}, cfg.PrefsRefresh)
	if err := prefs.Refresh(ctx); err != nil {
		log.Fatalf("prefs load: %v", err)
	}
	go prefs.Run(ctx)

	// Channels
	channels := []notify.Channel{notify.LogChannel{}}
	if endpoint := os.Getenv("WEBHOOK_ENDPOINT"); endpoint != "" {
		channels = append(channels, notify.NewWebhookChannel(endpoint, cfg.WebhookTimeout))
	}

	engine := &notify.Engine{
		Prefs:    prefs,
		Throttle: &notify.RedisThrottle{Client: rdb},
		Channels: channels,
		Dedup:    &notify.RedisDeduper{Client: rdb, Service: cfg.ServiceName + "-notifier"},
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, releases.TopicMutations, cfg.ConsumerCount)
	go func() {
		log.Printf("notifier consumer started: group=%s topic=%s workers=%d",
			cfg.ConsumerGroup, releases.TopicMutations, cfg.ConsumerCount)
		if err := cons.Start(ctx, engine.HandleMessage); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down notifier...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
