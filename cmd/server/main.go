package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/callcoach/callcoach-core/internal/api"
	apihandlers "github.com/callcoach/callcoach-core/internal/api/handlers"
	"github.com/callcoach/callcoach-core/internal/chat/agents"
	"github.com/callcoach/callcoach-core/internal/chat/format"
	"github.com/callcoach/callcoach-core/internal/chat/handlers"
	"github.com/callcoach/callcoach-core/internal/chat/intent"
	"github.com/callcoach/callcoach-core/internal/chat/orchestrator"
	"github.com/callcoach/callcoach-core/internal/chat/scope"
	"github.com/callcoach/callcoach-core/internal/config"
	"github.com/callcoach/callcoach-core/internal/repo"
	"github.com/callcoach/callcoach-core/internal/services"
	"github.com/callcoach/callcoach-core/internal/storage/weaviate"
	"github.com/callcoach/callcoach-core/internal/tracing"
	"github.com/callcoach/callcoach-core/pkg/cache"
	"github.com/callcoach/callcoach-core/pkg/logger"
	"github.com/callcoach/callcoach-core/pkg/version"
)

const configPath = "./configs/config.yaml"

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("Starting callcoach-core", "version", version.Version, "environment", cfg.Environment)

	// Valkey for sessions, rate limiting and LLM response caching; falls
	// back to an in-process cache when no node is configured or reachable.
	valkeyCache := buildCache(cfg, log)

	// Read-side stores. The production database layer registers its own
	// implementations here; the in-memory store backs local development.
	store := repo.NewMemoryStore()

	// LLM provider, wrapped with the Valkey-backed response cache.
	llmService, err := services.NewLLMService(cfg.AI, log)
	if err != nil {
		log.Fatal("Failed to initialize LLM provider", "error", err)
	}
	cachedLLM := services.NewCachedLLMService(llmService, valkeyCache, time.Duration(cfg.Cache.TTL)*time.Second, log)
	log.Info("LLM provider initialized", "provider", llmService.GetProviderName(), "model", llmService.GetModelName())

	// Semantic search: weaviate vector store plus the bleve keyword
	// fallback. Either side may be absent; search degrades accordingly.
	var snippetStore weaviate.SnippetStore
	var readiness apihandlers.ReadinessProbe
	transport, err := weaviate.NewTransportFromConfig(cfg.Search.Weaviate)
	if err != nil {
		log.Warn("Weaviate unavailable; semantic search will fall back to keyword search", "error", err)
	} else {
		snippetStore = weaviate.NewCallSnippetStore(transport, log)
		readiness = transport
	}

	embedder, err := services.NewEmbedder(cfg.AI, log)
	if err != nil {
		log.Warn("No embedding provider; semantic search will fall back to keyword search", "error", err)
		embedder = nil
	}

	var keywordIndex *services.KeywordIndex
	if cfg.Search.KeywordFallback {
		keywordIndex, err = services.NewKeywordIndex(cfg.Search.KeywordIndexPath, log)
		if err != nil {
			log.Warn("Keyword index unavailable", "error", err)
		}
	}

	searchService := services.NewCallSearchService(
		embedder, snippetStore, keywordIndex,
		cfg.Search.SimilarityThreshold, cfg.Search.Limit, log,
	)
	analysisService := services.NewAnalysisService(cachedLLM, log)
	telemetry := services.NewObjectionTelemetry(store, log)
	indexer := services.NewCallIndexer(searchService, store, store, store, log)

	// Chat pipeline.
	scopes := scope.NewResolver(store, cfg.Coaching.FloorWidePhrases)
	names := agents.NewResolver(store)
	ruleClassifier := intent.NewRuleClassifier(cfg.Coaching.DefaultDaysBack)
	classifier := intent.NewLLMClassifier(cachedLLM, ruleClassifier, log)

	handlerSet := handlers.NewSet(
		store, store, store, names,
		analysisService, searchService, telemetry,
		handlers.Defaults{
			Department: cfg.Coaching.DefaultDepartment,
			DaysBack:   cfg.Coaching.DefaultDaysBack,
			Limit:      cfg.Search.Limit,
		},
		log,
	)
	dispatcher, err := handlers.NewDispatcher(handlerSet)
	if err != nil {
		log.Fatal("Failed to build intent dispatcher", "error", err)
	}
	formatter := format.New(cachedLLM, log)
	pipeline := orchestrator.New(classifier, scopes, dispatcher, formatter, log)

	// Distributed tracing (optional).
	if cfg.Tracing.Enabled {
		tp, err := tracing.NewTracerProvider("callcoach-core", version.Version, cfg.Tracing.OTLPEndpoint)
		if err != nil {
			log.Warn("Failed to initialize tracing", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					log.Warn("Tracer shutdown failed", "error", err)
				}
			}()
		}
	}

	// Hot-reload the floor-wide lexicon on config file changes.
	if _, statErr := os.Stat(configPath); statErr == nil {
		watcher, err := config.NewWatcher(configPath, log, func(next *config.Config) {
			scopes.SetFloorWidePhrases(next.Coaching.FloorWidePhrases)
		})
		if err != nil {
			log.Warn("Config watcher unavailable; floor-wide lexicon is fixed until restart", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	apiServer := api.NewServer(
		cfg, log, valkeyCache, pipeline, scopes,
		api.Stores{Roster: store, Calls: store, Goals: store, Objections: store},
		readiness, indexer,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The keyword index is process-local, so stored calls must be
	// replayed into it on every start. Runs in the background; search
	// degrades gracefully until it completes.
	if snippetStore != nil || keywordIndex != nil {
		go func() {
			if _, err := indexer.ReindexAll(ctx, time.Time{}); err != nil {
				log.Warn("Startup search reindex did not complete", "error", err)
			}
		}()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("Shutdown signal received")
		cancel()
	}()

	if err := apiServer.Start(ctx); err != nil {
		log.Fatal("Server failed to start", "error", err)
	}

	// Let in-flight objection telemetry writes finish.
	telemetry.Flush()
	log.Info("callcoach-core shutdown complete")
}

func buildCache(cfg *config.Config, log logger.Logger) cache.Valkey {
	if len(cfg.Cache.Nodes) == 0 {
		return cache.NewInMemory(log)
	}
	c, err := cache.New(cfg.Cache.Nodes[0], time.Duration(cfg.Cache.TTL)*time.Second, log)
	if err != nil {
		log.Warn("Valkey connection failed", "node", cfg.Cache.Nodes[0], "error", err)
		return cache.NewInMemory(log)
	}
	log.Info("Valkey cache initialized", "node", cfg.Cache.Nodes[0])
	return c
}
