package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"storymill/config"
	"storymill/dedup"
	"storymill/ingest"
	"storymill/storage"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	brokers := strings.Split(envOr("KAFKA_BROKERS", "localhost:9092"), ",")
	topic := envOr("KAFKA_TOPIC", config.DefaultBatchTopic)
	groupID := envOr("KAFKA_GROUP_ID", config.DefaultConsumerGroup)

	state := initializeSeenStore()
	if state != nil {
		defer state.Close()
	}
	archive := initializeArchive(ctx)

	handler := ingest.NewBatchHandler(dedup.DefaultOptions(), storeOrNil(state), archiveOrNil(archive))

	consumer, err := ingest.NewConsumer(ingest.ConsumerConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
		Handler: handler,
	})
	if err != nil {
		log.Fatalf("Failed to create Kafka consumer: %v", err)
	}
	defer consumer.Close()

	if err := consumer.Start(ctx); err != nil {
		log.Fatalf("Failed to start Kafka consumer: %v", err)
	}

	<-ctx.Done()
	log.Println("Shutting down worker")
}

// initializeSeenStore connects to Redis if configured; the worker still runs
// without cross-batch state when it is not.
func initializeSeenStore() *storage.SeenStore {
	if os.Getenv("REDIS_ADDR") == "" {
		log.Println("REDIS_ADDR not set; cross-batch seen state disabled")
		return nil
	}
	store, err := storage.NewSeenStoreFromEnv()
	if err != nil {
		log.Printf("Warning: failed to init seen store: %v (cross-batch state disabled)", err)
		return nil
	}
	return store
}

// initializeArchive returns an S3-backed run archive if S3_BUCKET is set.
func initializeArchive(ctx context.Context) *storage.Archive {
	bucket := strings.TrimSpace(os.Getenv("S3_BUCKET"))
	if bucket == "" {
		log.Println("S3_BUCKET not set; run archiving disabled")
		return nil
	}

	client, err := storage.NewS3(ctx, storage.S3Config{
		Region:       strings.TrimSpace(os.Getenv("S3_REGION")),
		Profile:      strings.TrimSpace(os.Getenv("S3_PROFILE")),
		UsePathStyle: strings.EqualFold(strings.TrimSpace(os.Getenv("S3_USE_PATH_STYLE")), "true"),
	})
	if err != nil {
		log.Printf("Warning: failed to init S3 client: %v (archiving disabled)", err)
		return nil
	}

	prefix := strings.TrimSpace(os.Getenv("S3_PREFIX"))
	if prefix == "" {
		prefix = config.DefaultArchivePrefix
	} else {
		prefix = strings.Trim(prefix, "/") + "/"
	}
	return storage.NewArchive(client, bucket, prefix)
}

// storeOrNil avoids handing the handler a typed nil inside a non-nil
// interface value.
func storeOrNil(s *storage.SeenStore) ingest.StateStore {
	if s == nil {
		return nil
	}
	return s
}

func archiveOrNil(a *storage.Archive) ingest.RunArchive {
	if a == nil {
		return nil
	}
	return a
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
