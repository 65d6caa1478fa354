package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sneakwatch/go-release-pipeline/internal/adapters"
	"github.com/sneakwatch/go-release-pipeline/internal/config"
	"github.com/sneakwatch/go-release-pipeline/internal/ingest"
	"github.com/sneakwatch/go-release-pipeline/internal/jobs"
	kafkax "github.com/sneakwatch/go-release-pipeline/internal/kafka"
	"github.com/sneakwatch/go-release-pipeline/internal/postgres"
	"github.com/sneakwatch/go-release-pipeline/internal/redisx"
	"github.com/sneakwatch/go-release-pipeline/internal/releases"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer for mutation events emitted by the ingest pipeline. It gets
	// its own lifetime: it must outlive the worker context so a job finishing
	// during shutdown can still publish, and is flushed via Close below.
	prod := kafkax.NewProducer(cfg.KafkaBrokers, releases.TopicMutations, 1024)
	prod.Start(context.Background())

	repo := &releases.Repo{DB: db}
	svc := &ingest.Service{
		Store:       repo,
		Producer:    prod,
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-worker",
	}

	queue := &jobs.PGQueue{DB: db}
	worker := &jobs.Worker{
		ID:     cfg.WorkerID,
		Queue:  queue,
		Source: adapters.NewFeedAdapter(cfg.Feeds, cfg.FetchTimeout),
		Ingest: svc,
		Poll:   cfg.PollInterval,
	}

	go jobs.RunReaper(ctx, queue, cfg.JobLease)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Printf("worker started: id=%s poll=%s lease=%s", cfg.WorkerID, cfg.PollInterval, cfg.JobLease)
		worker.Run(ctx)
	}()

	// graceful shutdown: stop claiming first, then flush the producer once
	// no job can publish anymore
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down worker...")
	cancel()
	<-done
	prod.Close()
	prod.WaitClosed()
}
