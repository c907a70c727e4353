package api

import (
	"context"
	"net/http"
	"time"

	"github.com/notedrop/notedrop/api/rest"
	"github.com/notedrop/notedrop/cache"
	"github.com/notedrop/notedrop/images"
	"github.com/notedrop/notedrop/mq"
	"github.com/notedrop/notedrop/service"
	"github.com/notedrop/notedrop/store"
	"github.com/notedrop/notedrop/worker"
)

type NotedropAPI struct {
	restHandler    *rest.Handler
	requestCounter *worker.RequestCounterBatcher
	noteLimiter    *clientRateLimiter
}

func NewNotedropAPI(
	noteStore store.NoteStore,
	noteCache cache.NoteCache,
	imageCleanupQueue mq.MessageQueue,
	imageStore *images.Store,
	sweepInterval time.Duration,
	shutdownCtx context.Context,
) (*NotedropAPI, error) {
	requestCounter := worker.NewRequestCounterBatcher(noteCache, 60000)
	go requestCounter.Run(shutdownCtx)

	sweeper := worker.NewExpirySweeper(noteStore, noteCache, imageCleanupQueue, sweepInterval)
	go sweeper.Run(shutdownCtx)

	mqConsumer := worker.NewMQConsumer(imageCleanupQueue, imageStore)
	go mqConsumer.Run(shutdownCtx)

	svc := service.NewService(noteStore, noteCache, imageCleanupQueue)
	restHandler := rest.NewHandler(svc, imageStore)

	return &NotedropAPI{
		restHandler:    restHandler,
		requestCounter: requestCounter,
		noteLimiter:    newClientRateLimiter(5, 10),
	}, nil
}

func (notedropAPI *NotedropAPI) RegisterRoutes(mux *http.ServeMux, allowedOrigins []string) {
	// Health check endpoint (no counting, no limits)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	counted := func(h http.HandlerFunc) http.HandlerFunc {
		return allowCORS(allowedOrigins, countRequests(notedropAPI.requestCounter, h))
	}
	limited := func(h http.HandlerFunc) http.HandlerFunc {
		return counted(rateLimit(notedropAPI.noteLimiter, h))
	}

	mux.HandleFunc("/api/v1/notes/create_note", limited(notedropAPI.restHandler.HandleCreateNote))
	mux.HandleFunc("/api/v1/notes/get_note", limited(notedropAPI.restHandler.HandleGetNote))
	mux.HandleFunc("/api/v1/notes/notes", counted(notedropAPI.restHandler.HandleListNotes))
	mux.HandleFunc("/api/v1/notes/stats", counted(notedropAPI.restHandler.HandleStats))
}
