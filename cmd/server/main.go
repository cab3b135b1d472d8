package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"go-apartment-scout/internal/config"
	"go-apartment-scout/internal/database"
	"go-apartment-scout/internal/dedup"
	"go-apartment-scout/internal/pipeline"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	addr := cfg.Server.Addr
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, cfg.Storage.Driver, cfg.Storage.SQLitePath, cfg.Storage.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	p, err := pipeline.NewParser(cfg)
	if err != nil {
		log.Fatalf("Failed to build parser: %v", err)
	}
	engine := dedup.NewEngine(store, dedup.Options{
		WindowDays: cfg.Dedup.WindowDays,
		Threshold:  cfg.Dedup.SimilarityThreshold,
	})

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(p, engine, cfg.FilterCriteria(), cfg.Notify.PartialMinScore),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}
