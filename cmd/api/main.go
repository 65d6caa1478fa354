package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/sneakwatch/go-release-pipeline/internal/config"
	"github.com/sneakwatch/go-release-pipeline/internal/httpx"
	"github.com/sneakwatch/go-release-pipeline/internal/ingest"
	"github.com/sneakwatch/go-release-pipeline/internal/jobs"
	kafkax "github.com/sneakwatch/go-release-pipeline/internal/kafka"
	"github.com/sneakwatch/go-release-pipeline/internal/postgres"
	"github.com/sneakwatch/go-release-pipeline/internal/postgres/migrations"
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
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	sqldb := stdlib.OpenDBFromPool(db)
	if err := migrations.MigrateUp(sqldb); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	_ = sqldb.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for mutation events
	prod := kafkax.NewProducer(cfg.KafkaBrokers, releases.TopicMutations, 1024)
	prod.Start(ctx)

	// Pipeline & handlers
	repo := &releases.Repo{DB: db}
	svc := &ingest.Service{
		Store:       repo,
		Producer:    prod,
		Redis:       rdb,
		ServiceName: cfg.ServiceName,
	}
	queue := &jobs.PGQueue{DB: db}

	router := httpx.NewRouter()
	(&httpx.IngestHandler{Service: svc}).Register(router)
	(&httpx.ReleasesHandler{Repo: repo, Redis: rdb}).Register(router)
	(&httpx.JobsHandler{Queue: queue}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // close inbox -> flush & close writer
	prod.WaitClosed() // drain
	cancel()
}
