// Command router runs the ticket enrichment and routing HTTP service.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/orbitdesk/ticketrouter/pkg/api"
	"github.com/orbitdesk/ticketrouter/pkg/bus"
	"github.com/orbitdesk/ticketrouter/pkg/config"
	"github.com/orbitdesk/ticketrouter/pkg/database"
	"github.com/orbitdesk/ticketrouter/pkg/geocode"
	"github.com/orbitdesk/ticketrouter/pkg/llm"
	"github.com/orbitdesk/ticketrouter/pkg/metrics"
	"github.com/orbitdesk/ticketrouter/pkg/pii"
	"github.com/orbitdesk/ticketrouter/pkg/services"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("CONFIG_PATH", "./deploy/config/policies.yaml"), "path to policies.yaml")
	envPath := flag.String("env-file", getEnv("ENV_FILE", "./deploy/config/.env"), "path to a .env file")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil {
		log.Printf("no .env file loaded from %s: %v", *envPath, err)
	}

	httpAddr := ":" + getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "release"))

	ctx := context.Background()

	policies, err := config.Initialize(*configPath)
	if err != nil {
		log.Fatalf("failed to initialize policies: %v", err)
	}

	dbCfg := database.DefaultConfig
	dbCfg.DSN = policies.Secrets.DatabaseURL
	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbClient.Close()
	log.Println("connected to database and applied migrations")

	sealer, err := pii.NewAESSealer([]byte(policies.Secrets.EncryptionKey))
	if err != nil {
		log.Fatalf("failed to initialize PII sealer: %v", err)
	}

	llmClient, err := llm.NewGRPCClient(getEnv("LLM_SERVICE_ADDR", "localhost:50051"))
	if err != nil {
		log.Fatalf("failed to dial LLM service: %v", err)
	}

	var geoCascade []geocode.Provider
	for _, p := range policies.GeocodeProviders {
		apiKey := ""
		if p.APIKeyEnv != "" {
			apiKey = os.Getenv(p.APIKeyEnv)
		}
		geoCascade = append(geoCascade, geocode.NewHTTPProvider(p.Name, p.BaseURL, apiKey))
	}

	var geoCache geocode.Cache
	if policies.GeocodeCache.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: policies.GeocodeCache.RedisAddr,
			DB:   policies.GeocodeCache.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to reach redis geocode cache at %s: %v", policies.GeocodeCache.RedisAddr, err)
		}
		geoCache = geocode.NewRedisCache(redisClient, policies.GeocodeCache.KeyPrefix, policies.GeocodeCache.PositiveTTL, policies.GeocodeCache.NegativeTTL)
		log.Printf("geocode cache: redis at %s", policies.GeocodeCache.RedisAddr)
	} else {
		geoCache = geocode.NewMemCache()
		log.Println("geocode cache: in-memory (no redis_addr configured)")
	}

	registry := prometheus.NewRegistry()
	metricsCollectors := metrics.New(registry)

	events := bus.New()
	batchService := services.NewBatchService(dbClient, events, policies, sealer, llmClient, geoCache, geoCascade, metricsCollectors)

	server := api.NewServer(dbClient, events, batchService, registry)

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("ticket router listening on %s", httpAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server stopped: %v", err)
	}
}
