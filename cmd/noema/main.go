package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/api"
	"github.com/halgrim/noema/internal/config"
	"github.com/halgrim/noema/internal/embedding"
	"github.com/halgrim/noema/internal/engine"
	"github.com/halgrim/noema/internal/events"
	"github.com/halgrim/noema/internal/lineage"
	"github.com/halgrim/noema/internal/memory"
	"github.com/halgrim/noema/internal/notify"
	"github.com/halgrim/noema/internal/persist"
	"github.com/halgrim/noema/internal/provider"
	"github.com/halgrim/noema/internal/rule"
	"github.com/halgrim/noema/internal/store"
	"github.com/halgrim/noema/internal/tool"
	"github.com/halgrim/noema/internal/vectorstore"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting noema...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/noema.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Initialize provider router
	router := provider.NewRouter(logger)
	for _, pc := range cfg.Providers {
		provCfg := provider.Config{
			ID: pc.ID, Type: pc.Type, Name: pc.Name,
			Endpoint: pc.Endpoint, APIKey: pc.APIKey,
			Extra: pc.Extra,
		}
		if len(pc.Models) > 0 {
			provCfg.Model = pc.Models[0]
		}
		switch pc.Type {
		case "openai":
			router.Register(provider.NewOpenAIProvider(provCfg, logger))
		case "anthropic":
			router.Register(provider.NewAnthropicProvider(provCfg, logger))
		default:
			logger.Warn("unknown provider type", zap.String("id", pc.ID), zap.String("type", pc.Type))
		}
	}

	// Initialize embedder
	var embedder embedding.Provider
	switch cfg.Embedding.Provider {
	case "api":
		embedder = embedding.NewAPIProvider(embedding.Config{
			Endpoint:  cfg.Embedding.Endpoint,
			Model:     cfg.Embedding.Model,
			APIKey:    cfg.Embedding.APIKey,
			Dimension: cfg.Embedding.Dimension,
		})
	default:
		embedder = embedding.NewHashProvider(cfg.Embedding.Dimension)
	}

	// Initialize memory store: Qdrant when configured, in-process otherwise
	var mem memory.Store
	if cfg.Database.Qdrant.Enabled {
		qdrant, qErr := vectorstore.Dial(vectorstore.Config{
			Host: cfg.Database.Qdrant.Host,
			Port: cfg.Database.Qdrant.Port,
		})
		if qErr != nil {
			logger.Warn("Qdrant unavailable, using volatile memory", zap.Error(qErr))
		} else {
			qs, msErr := memory.NewQdrantStore(context.Background(), embedder, qdrant, logger)
			if msErr != nil {
				logger.Warn("Qdrant collection setup failed, using volatile memory", zap.Error(msErr))
			} else {
				mem = qs
			}
		}
	}
	if mem == nil {
		mem = memory.NewVolatileStore(embedder)
	}

	// Initialize prompt notifiers
	var notifiers []notify.Notifier
	if cfg.Notify.Discord.Enabled && cfg.Notify.Discord.BotToken != "" {
		dn, dErr := notify.NewDiscordNotifier(cfg.Notify.Discord.BotToken, cfg.Notify.Discord.ChannelID, logger)
		if dErr != nil {
			logger.Warn("Discord notifier unavailable", zap.Error(dErr))
		} else {
			notifiers = append(notifiers, dn)
			defer dn.Close()
		}
	}
	if cfg.Notify.Slack.Enabled && cfg.Notify.Slack.BotToken != "" {
		notifiers = append(notifiers,
			notify.NewSlackNotifier(cfg.Notify.Slack.BotToken, cfg.Notify.Slack.Channel, logger))
	}
	notifier := notify.NewMulti(logger, notifiers...)

	// Entity stores and tool registry
	thoughts := store.NewThoughts(logger)
	rules := store.NewRules(logger)
	registry := tool.NewRegistry()
	tool.RegisterBuiltins(registry)

	// Engine
	engineCfg := engine.Config{
		TickInterval:  time.Duration(cfg.Engine.TickSeconds) * time.Second,
		MaxConcurrent: cfg.Engine.MaxConcurrent,
		BatchSize:     cfg.Engine.BatchSize,
		MaxRetries:    cfg.Engine.MaxRetries,
	}
	eng := engine.New(engineCfg, thoughts, rules, registry, router, mem, notifier, logger)

	// Snapshot persistence
	snapshotPath := cfg.Persist.Path
	if snapshotPath == "" {
		snapshotPath = "data/state.json"
	}
	fileStore := persist.NewFileStore(snapshotPath,
		time.Duration(cfg.Persist.DebounceSeconds)*time.Second, thoughts, rules, logger)
	if err := fileStore.Load(context.Background()); err != nil {
		logger.Fatal("snapshot restore failed", zap.Error(err))
	}
	eng.AddObserver(fileStore)

	// Rule definitions from disk override nothing; they fill in what the
	// snapshot does not already hold.
	if cfg.RulesDir != "" {
		loaded, rErr := rule.LoadFromDir(cfg.RulesDir)
		if rErr != nil {
			logger.Fatal("rule load failed", zap.Error(rErr))
		}
		added := 0
		for _, r := range loaded {
			if _, exists := rules.Get(r.ID); !exists {
				rules.Add(r)
				added++
			}
		}
		logger.Info("rules loaded from disk",
			zap.String("dir", cfg.RulesDir), zap.Int("added", added))
	}

	// PostgreSQL archive
	var pgStore *persist.PostgresStore
	if cfg.Database.Postgres.Enabled && cfg.Database.Postgres.DSN != "" {
		ps, pgErr := persist.NewPostgresStore(context.Background(), cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without archive", zap.Error(pgErr))
		} else {
			if sErr := ps.EnsureSchema(context.Background()); sErr != nil {
				logger.Fatal("archive schema failed", zap.Error(sErr))
			}
			eng.AddObserver(ps)
			pgStore = ps
		}
	}

	// Redis event stream
	var publisher *events.Publisher
	if cfg.Database.Redis.Enabled && cfg.Database.Redis.URL != "" {
		pub, rErr := events.NewPublisher(cfg.Database.Redis.URL, logger)
		if rErr != nil {
			logger.Warn("Redis unavailable, running without event stream", zap.Error(rErr))
		} else {
			eng.AddObserver(pub)
			publisher = pub
		}
	}

	// Neo4j lineage mirror
	var mirror *lineage.Mirror
	if cfg.Database.Neo4j.Enabled && cfg.Database.Neo4j.URI != "" {
		m, nErr := lineage.NewMirror(cfg.Database.Neo4j.URI, cfg.Database.Neo4j.User, cfg.Database.Neo4j.Password, logger)
		if nErr != nil {
			logger.Warn("Neo4j unavailable, running without lineage mirror", zap.Error(nErr))
		} else if pErr := m.Ping(context.Background()); pErr != nil {
			logger.Warn("Neo4j unreachable, running without lineage mirror", zap.Error(pErr))
		} else {
			eng.AddObserver(m)
			mirror = m
		}
	}

	// Run the engine until shutdown
	runCtx, stopEngine := context.WithCancel(context.Background())
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		eng.Run(runCtx)
	}()

	// Build HTTP handler
	handler := api.NewHandler(eng, logger)

	// Start server
	port := fmt.Sprintf("%d", cfg.Server.Port)
	if port == "0" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("noema listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down noema...")
	stopEngine()
	<-engineDone

	ctx := context.Background()
	srv.Shutdown(ctx)
	if err := fileStore.Close(ctx); err != nil {
		logger.Error("final snapshot failed", zap.Error(err))
	}
	if pgStore != nil {
		pgStore.Close()
	}
	if publisher != nil {
		publisher.Close()
	}
	if mirror != nil {
		mirror.Close(ctx)
	}
}
