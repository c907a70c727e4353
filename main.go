package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/notedrop/notedrop/api"
	"github.com/notedrop/notedrop/cache/redis"
	"github.com/notedrop/notedrop/images"
	"github.com/notedrop/notedrop/mq/sqsmq"
	"github.com/notedrop/notedrop/store/dynamo"
)

const (
	DynamoDBTable        = "Notedrop"
	SQSImageCleanupQueue = "NoteImageCleanupQueue"
)

const defaultSweepIntervalMinutes = 120

func main() {
	ctx := context.Background()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	devMode := os.Getenv("DEV_MODE") == "true"

	noteStore, err := dynamo.NewDynamoNoteStore(ctx, devMode, os.Getenv("DYNAMODB_ENDPOINT"), DynamoDBTable)
	if err != nil {
		log.Fatalf("Failed to create dynamodb store: %v", err)
	}

	imageCleanupQueue, err := sqsmq.NewSQSMessageQueue(ctx, devMode, os.Getenv("SQS_ENDPOINT"), SQSImageCleanupQueue)
	if err != nil {
		log.Fatalf("Failed to create SQS MQ: %v", err)
	}

	noteCache, err := redis.NewRedisNoteCache(ctx, devMode, os.Getenv("REDIS_ENDPOINT"))
	if err != nil {
		log.Fatalf("Failed to create redis cache: %v", err)
	}

	imageDir := os.Getenv("IMAGE_DIR")
	if imageDir == "" {
		imageDir = "static/images"
	}
	imageStore, err := images.NewStore(imageDir)
	if err != nil {
		log.Fatalf("Failed to create image store: %v", err)
	}

	sweepIntervalMinutes := defaultSweepIntervalMinutes
	if raw := os.Getenv("SWEEP_INTERVAL_MINUTES"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			log.Fatalf("Invalid SWEEP_INTERVAL_MINUTES: %q", raw)
		}
		sweepIntervalMinutes = parsed
	}

	var allowedOrigins []string
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		allowedOrigins = strings.Split(raw, ",")
	}

	shutdownCtx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	notedropAPI, err := api.NewNotedropAPI(
		noteStore,
		noteCache,
		imageCleanupQueue,
		imageStore,
		time.Duration(sweepIntervalMinutes)*time.Minute,
		shutdownCtx,
	)
	if err != nil {
		log.Fatalf("Failed to create notedrop api: %v", err)
	}

	mux := http.NewServeMux()
	notedropAPI.RegisterRoutes(mux, allowedOrigins)

	hostPort := "8080"
	if p := os.Getenv("HOST_PORT"); p != "" {
		hostPort = p
	}
	log.Printf("Starting server on host port: %s\n", hostPort)
	log.Fatal(http.ListenAndServe(":"+hostPort, mux))
}
