package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quorumlabs/quorum/internal/agents"
	"github.com/quorumlabs/quorum/internal/config"
	"github.com/quorumlabs/quorum/internal/coordinator"
	"github.com/quorumlabs/quorum/internal/embedding"
	"github.com/quorumlabs/quorum/internal/llm"
	"github.com/quorumlabs/quorum/internal/search"
	"github.com/quorumlabs/quorum/internal/server"
	"github.com/quorumlabs/quorum/internal/state"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Quorum server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	db, err := state.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating store: %w", err)
	}
	log.Info("store ready", zap.String("path", db.Path()))

	client, err := llm.NewClient(llm.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return fmt.Errorf("creating completion client: %w", err)
	}
	log.Info("completion client ready", zap.String("model", string(client.Model())))

	kv := state.NewKV(db)
	searcher := search.NewCachedSearcher(
		search.NewDuckDuckGo(cfg.Search.Endpoint, log),
		kv, cfg.Cache.TTL, log,
	)

	var embedder coordinator.Embedder
	if cfg.Embedding.Enabled {
		engine := embedding.NewOllamaEngine(cfg.Embedding.OllamaURL, cfg.Embedding.Model)
		embedder = state.NewVectorStore(db, engine, log)
		log.Info("vector indexing enabled",
			zap.String("ollama_url", cfg.Embedding.OllamaURL),
			zap.String("model", cfg.Embedding.Model))
	}

	workers := agents.New(client, searcher, cfg.Search.MaxResults, log)
	registry := server.NewRegistry(workers, db, embedder, log, cfg.Stream.TokenDelay)
	limiter := server.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.New(registry, limiter, log),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
