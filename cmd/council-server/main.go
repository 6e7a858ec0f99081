package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"council/internal/config"
	"council/internal/conversation"
	"council/internal/council"
	"council/internal/httpapi"
	"council/internal/objectstore"
	"council/internal/observability"
	"council/internal/upstream"
	"council/internal/voting"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("council-server")
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func run() error {
	if err := godotenv.Load(".env"); err != nil {
		_ = godotenv.Load("example.env")
	}

	rc := config.LoadRuntimeConfig()
	observability.InitLogger(getenv("LOG_PATH", ""), rc.LogLevel)

	baseCtx := context.Background()
	shutdownTracing, err := observability.InitTracing(baseCtx, observability.TracingConfig{
		Endpoint:    rc.TracingEndpoint,
		ServiceName: getenv("OTEL_SERVICE_NAME", "council"),
		Insecure:    getenv("OTEL_EXPORTER_OTLP_INSECURE", "true") == "true",
	})
	if err != nil {
		log.Warn().Err(err).Msg("tracing init failed, continuing without export")
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	resolver, err := config.NewResolver(rc.DataDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	httpClient := observability.NewHTTPClient(nil)
	catalog := upstream.NewCatalog(newRedisClient(rc.RedisAddr))
	client := upstream.NewClient(httpClient, rc.MaxConcurrentRequests, rc.MaxRetries, catalog)

	engine := &council.Engine{
		Resolver: resolver,
		Upstream: client,
		Catalog:  council.NewConsensusPromptCatalog(rc.DataDir),
		APIKey:   rc.DefaultAPIKey,
		BaseURL:  rc.DefaultAPIURL,
	}

	store, err := newConversationStore(baseCtx, rc)
	if err != nil {
		return fmt.Errorf("init conversation store: %w", err)
	}

	votes, err := newVotingStore(baseCtx, rc)
	if err != nil {
		return fmt.Errorf("init voting store: %w", err)
	}

	server := httpapi.NewServer(engine, store, votes)

	ctx, cancel := signal.NotifyContext(baseCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	addr := getenv("COUNCIL_LISTEN_ADDR", ":8089")
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("council-server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// newRedisClient builds the second-tier model-catalog cache client when
// addr is set; the catalog works fine with a nil client.
func newRedisClient(addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}

// newConversationStore picks a Store backend from COUNCIL_CONVERSATION_BACKEND:
// "file" (default), "memory", or "s3".
func newConversationStore(ctx context.Context, rc config.RuntimeConfig) (conversation.Store, error) {
	switch getenv("COUNCIL_CONVERSATION_BACKEND", "file") {
	case "memory":
		return conversation.NewMemoryStore(), nil
	case "s3":
		if rc.S3Bucket == "" {
			return nil, fmt.Errorf("COUNCIL_CONVERSATION_BACKEND=s3 requires COUNCIL_S3_BUCKET")
		}
		bucket, err := objectstore.NewS3Store(ctx, objectstore.S3Config{
			Endpoint:     os.Getenv("COUNCIL_S3_ENDPOINT"),
			Region:       getenv("COUNCIL_S3_REGION", "us-east-1"),
			Bucket:       rc.S3Bucket,
			Prefix:       os.Getenv("COUNCIL_S3_PREFIX"),
			AccessKey:    os.Getenv("COUNCIL_S3_ACCESS_KEY"),
			SecretKey:    os.Getenv("COUNCIL_S3_SECRET_KEY"),
			UsePathStyle: getenv("COUNCIL_S3_USE_PATH_STYLE", "false") == "true",
		})
		if err != nil {
			return nil, err
		}
		return conversation.NewObjectStore(bucket), nil
	default:
		dataDir := getenv("COUNCIL_CONVERSATION_DIR", rc.DataDir+"/conversations")
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, err
		}
		return conversation.NewFileStore(dataDir), nil
	}
}

// newVotingStore picks a Store backend from COUNCIL_VOTING_BACKEND: "memory"
// (default, vote history lost on restart) or "postgres".
func newVotingStore(ctx context.Context, rc config.RuntimeConfig) (voting.Store, error) {
	if getenv("COUNCIL_VOTING_BACKEND", "memory") != "postgres" {
		return voting.NewMemoryStore(), nil
	}
	dsn := rc.PostgresDSN
	if dsn == "" {
		return nil, fmt.Errorf("COUNCIL_VOTING_BACKEND=postgres requires POSTGRES_DSN")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := voting.NewPostgresStore(pool)
	if initer, ok := store.(interface{ Init(context.Context) error }); ok {
		if err := initer.Init(ctx); err != nil {
			return nil, fmt.Errorf("init votes table: %w", err)
		}
	}
	return store, nil
}
