package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"memoria/internal/config"
	"memoria/internal/database/kafka"
	"memoria/internal/database/milvus"
	"memoria/internal/database/mongo"
	"memoria/internal/database/redis"
	"memoria/internal/embedding"
	"memoria/internal/llm"
	"memoria/internal/memory/api"
	"memoria/internal/memory/consumer"
	"memoria/internal/memory/extractor"
	"memoria/internal/memory/history"
	"memoria/internal/memory/service"
	"memoria/internal/memory/store"
	"memoria/pkg/logger"
	"memoria/pkg/ratelimiter"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize logger
	level, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.Init(level)
	appLogger := logger.New("MemoryService", "", "")
	appLogger.Info("Starting memory service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect the backing stores
	milvusClient, err := milvus.GetClient(ctx, &cfg.Databases.Milvus)
	if err != nil {
		log.Fatalf("Failed to connect to Milvus: %v", err)
	}
	defer milvusClient.Close()
	if err := milvusClient.EnsureCollection(ctx); err != nil {
		log.Fatalf("Failed to ensure Milvus collection: %v", err)
	}

	mongoClient, err := mongo.GetClient(&cfg.Databases.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongo.Close(context.Background())

	kafkaClient, err := kafka.GetClient(&cfg.Databases.Kafka)
	if err != nil {
		log.Fatalf("Failed to connect to Kafka: %v", err)
	}
	defer kafkaClient.Close()

	// 4. Build the model clients
	embedder, err := embedding.NewModel(ctx, cfg.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}
	if cfg.Embedding.RateRPS > 0 {
		burst := cfg.Embedding.RateBurst
		if burst <= 0 {
			burst = 1
		}
		embedder = embedding.NewRateLimitedModel(embedder, ratelimiter.NewTokenBucket(cfg.Embedding.RateRPS, burst))
	}
	if cfg.Embedding.Cache.Enabled {
		rdb, err := redis.GetClient(&cfg.Databases.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redis.Close()
		namespace := fmt.Sprintf("%s:%s:%s", cfg.Embedding.Cache.KeyPrefix, cfg.Embedding.Provider, embeddingModelName(cfg.Embedding))
		ttl := time.Duration(cfg.Embedding.Cache.TTLSeconds) * time.Second
		embedder = embedding.NewCachedModel(embedder, rdb, namespace, ttl)
	}

	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	// 5. Assemble the engine
	memoryStore := store.NewMilvusStore(milvusClient)
	recorder := history.NewMongoRecorder(mongoClient, cfg.Databases.MongoDB.Database, cfg.Databases.MongoDB.Collection)
	engine := service.NewEngine(
		extractor.NewLLMExtractor(llmClient),
		embedder,
		llmClient,
		memoryStore,
		recorder,
		appLogger,
		cfg.Consolidation,
	)

	// 6. Start the ingestion consumer
	kafkaConsumer := consumer.NewKafkaConsumer(kafkaClient, engine, appLogger)
	kafkaConsumer.Start(ctx)

	// 7. Start the HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.RegisterRoutes(router, api.NewAPI(engine, appLogger))

	address := cfg.Server.Address
	if address == "" {
		address = ":8080"
	}
	server := &http.Server{Addr: address, Handler: router}
	go func() {
		appLogger.Info(fmt.Sprintf("HTTP server listening at %s", address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	// 8. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(fmt.Sprintf("HTTP server shutdown: %v", err))
	}
	if err := milvusClient.Flush(shutdownCtx); err != nil {
		appLogger.Error(fmt.Sprintf("Milvus flush: %v", err))
	}
	appLogger.Info("Memory service stopped")
}

func embeddingModelName(cfg config.EmbeddingConfig) string {
	switch cfg.Provider {
	case "openai":
		return cfg.OpenAI.Model
	case "gemini":
		return cfg.Gemini.Model
	case "ollama":
		return cfg.Ollama.Model
	}
	return "unknown"
}
