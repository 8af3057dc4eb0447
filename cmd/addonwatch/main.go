package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"addonwatch/internal/aggregate"
	"addonwatch/internal/api"
	"addonwatch/internal/cache"
	"addonwatch/internal/classify"
	"addonwatch/internal/config"
	"addonwatch/internal/ingest"
	"addonwatch/internal/logging"
	"addonwatch/internal/model"
	"addonwatch/internal/scrape"
	"addonwatch/internal/storage"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (yaml or json)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("addonwatch", version)
		return
	}

	var cfg *config.Manager
	if *configPath != "" {
		m, err := config.NewManager(config.ResolvePath(*configPath))
		if err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(1)
		}
		cfg = m
	} else {
		cfg = config.NewStaticManager(config.DefaultConfig())
	}

	logger := logging.NewLogger(cfg.Get().LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(cfg.Get().Storage)
	if err != nil {
		logger.Error("storage open failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		logger.Error("storage init failed", "err", err)
		os.Exit(1)
	}

	tags := cache.NewTags()
	rollups := cache.NewRollups(func(ctx context.Context) ([]model.AddonRollup, error) {
		observations, err := store.ListObservations(ctx)
		if err != nil {
			return nil, err
		}
		return aggregate.Impacts(observations), nil
	})
	tags.Register(cache.TagOverallImpacts, rollups)

	classifier := classify.New(cfg.Get().Classifier, logger)
	scraper := scrape.NewClient(10 * time.Second)
	pipeline := ingest.NewPipeline(cfg, store, classifier, scraper, tags, logger)

	ingest.StartKafka(ctx, cfg, store, logger)

	server := api.NewServer(cfg, store, rollups, tags, classifier, pipeline, scraper, logger, version)
	api.Start(ctx, server)

	if cfg.Path() != "" {
		go cfg.Watch(3*time.Second,
			func(*config.Config) { logger.Info("config reloaded") },
			func(err error) { logger.Warn("config reload failed", "err", err) },
			ctx.Done())
	}

	logger.Info("addonwatch started", "version", version, "addr", cfg.Get().Server.Addr)
	<-ctx.Done()
	logger.Info("shutting down")
}
