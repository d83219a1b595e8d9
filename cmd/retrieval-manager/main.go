// cmd/retrieval-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"prompt-retrieval/internal/ai/openai"
	"prompt-retrieval/internal/common/config"
	"prompt-retrieval/internal/common/database"
	"prompt-retrieval/internal/common/logger"
	"prompt-retrieval/internal/common/observability"
	"prompt-retrieval/internal/retrieval"
	"prompt-retrieval/internal/search"
	"prompt-retrieval/internal/store"
	dynamicprompt "prompt-retrieval/internal/strategies/dynamic-prompt"
	"prompt-retrieval/internal/strategies/passthrough"
	similaritysearch "prompt-retrieval/internal/strategies/similarity-search"
	retrieveprompts "prompt-retrieval/internal/workers/retrieval/retrieve-prompts"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")

	zapLog.Info("Starting retrieval manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	// Rebuild the logger with the configured level and format
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New("retrieval-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		// Test the connection
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init AI client ---
	aiClient, err := openai.New(cfg.AI, log)
	if err != nil {
		zapLog.Fatal("openai client failed", zap.Error(err))
	}
	zapLog.Info("AI client initialized")

	// --- Build retrieval pipeline ---
	searchClient := search.New(
		esClient.Client,
		redis.Client,
		aiClient,
		search.Config{
			IndexName: cfg.Retrieval.Similarity.IndexName,
			TopK:      cfg.Retrieval.Similarity.TopK,
			CacheTTL:  time.Duration(cfg.Retrieval.Similarity.CacheTTL) * time.Second,
			Timeout:   config.GetDuration(cfg.Retrieval.Similarity.SearchTimeout),
		},
		log,
	)

	orchestratorCfg := retrieval.Config{
		SimilarityThreshold:   cfg.Retrieval.Orchestrator.SimilarityThreshold,
		EnableDynamicPrompt:   cfg.Retrieval.Orchestrator.EnableDynamicPrompt,
		FallbackToPassthrough: cfg.Retrieval.Orchestrator.FallbackToPassthrough,
		MaxParallelRequests:   cfg.Retrieval.Orchestrator.MaxParallelRequests,
	}

	orchestrator, err := retrieval.New(
		orchestratorCfg,
		similaritysearch.New(searchClient, orchestratorCfg.SimilarityThreshold),
		retrieval.WithPassthrough(passthrough.New(passthrough.Config{
			Prefix:         cfg.Retrieval.Passthrough.Prefix,
			Suffix:         cfg.Retrieval.Passthrough.Suffix,
			FormatTemplate: cfg.Retrieval.Passthrough.FormatTemplate,
		})),
		retrieval.WithDynamicPrompt(dynamicprompt.New(aiClient)),
		retrieval.WithTelemetry(obs),
		retrieval.WithLogger(log),
	)
	if err != nil {
		zapLog.Fatal("orchestrator construction failed", zap.Error(err))
	}
	defer orchestrator.Close()

	matchStore := store.NewMatchStore(pg.DB, log)

	// --- Register worker ---
	if config.IsWorkerEnabled(cfg, retrieveprompts.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, retrieveprompts.TaskType)
		handlerCfg := retrieveprompts.DefaultConfig()
		if wcfg.Timeout > 0 {
			handlerCfg.Timeout = config.GetDuration(wcfg.Timeout)
		}
		handler := retrieveprompts.NewHandler(handlerCfg, orchestrator, matchStore, log)
		startWorker(zeebeClient, retrieveprompts.TaskType, wcfg, handler.Handle, zapLog)
	}
	zapLog.Info("All workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", cfg.App.MetricsPort)
		zapLog.Info("Health/Metrics server listening on " + addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_ = shutdownCtx

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Retrieval manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}
