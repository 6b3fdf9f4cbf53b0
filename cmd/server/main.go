package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shiva/pnrview/config"
	"github.com/shiva/pnrview/internal/breaker"
	"github.com/shiva/pnrview/internal/eventbus"
	"github.com/shiva/pnrview/internal/handler"
	"github.com/shiva/pnrview/internal/middleware"
	"github.com/shiva/pnrview/internal/repository"
	"github.com/shiva/pnrview/internal/service"
	"github.com/shiva/pnrview/internal/ws"
	"github.com/shiva/pnrview/pkg/cache"
	"github.com/shiva/pnrview/pkg/db"
)

func main() {
	// ── Load configuration ──────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// ── Connect to the document store ───────────────────
	pgPool, err := db.NewPostgresPool(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	defer pgPool.Close()
	log.Println("✓ PostgreSQL connected")

	// ── Connect to the fallback store ───────────────────
	redisClient, err := cache.NewRedisClient(ctx, cfg.Cache)
	if err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	fallbackStore := cache.NewRedisStore(redisClient)

	// ── Circuit breakers ────────────────────────────────
	registry := breaker.NewRegistry()
	for _, name := range config.BreakerNames {
		bc := cfg.Breakers[name]
		registry.GetOrCreate(breaker.Config{
			Name:                     name,
			SlidingWindowSize:        bc.SlidingWindowSize,
			MinimumNumberOfCalls:     bc.MinimumNumberOfCalls,
			FailureRateThreshold:     bc.FailureRateThreshold,
			WaitDurationInOpenState:  bc.WaitDuration,
			PermittedCallsInHalfOpen: bc.HalfOpenPermitted,
		})
	}

	// ── Event bus + broadcast bridge ────────────────────
	bus := eventbus.New(cfg.Bus.QueueSize)
	defer bus.Close()

	hub := ws.NewHub()
	defer hub.Close()

	// The hub relays every pnr.fetched event to attached sessions.
	bus.Subscribe(service.TopicPNRFetched, func(ev eventbus.Event) {
		hub.Broadcast(ev.Body)
	})

	// ── Initialize layers ───────────────────────────────
	tripRepo := repository.NewTripRepository(pgPool)
	baggageRepo := repository.NewBaggageRepository(pgPool)
	ticketRepo := repository.NewTicketRepository(pgPool)
	customerRepo := repository.NewCustomerRepository(pgPool)

	fetcherOpts := service.FetcherOptions{
		QueryTimeout: cfg.Store.QueryTimeout,
		CacheTTL:     cfg.Cache.TTL,
	}

	tripFetcher := service.NewTripFetcher(tripRepo, registry.Get("tripService"), fallbackStore, fetcherOpts)
	baggageFetcher := service.NewBaggageFetcher(baggageRepo, registry.Get("baggageService"), fallbackStore, fetcherOpts)
	ticketFetcher := service.NewTicketFetcher(ticketRepo, registry.Get("ticketService"), fetcherOpts)

	aggregator := service.NewAggregator(tripFetcher, baggageFetcher, ticketFetcher, customerRepo, bus, nil)

	bookingHandler := handler.NewBookingHandler(aggregator, registry)
	customerHandler := handler.NewCustomerHandler(aggregator, registry)
	breakersHandler := handler.NewCircuitBreakersHandler(registry)
	wsHandler := ws.NewHandler(hub, cfg.WS.ReadBuffer, cfg.WS.WriteBuffer)

	// ── Setup router ────────────────────────────────────
	router := mux.NewRouter()

	router.HandleFunc("/health", healthHandler(pgPool, redisClient, registry)).Methods(http.MethodGet)
	router.HandleFunc("/circuitbreakers", breakersHandler.List).Methods(http.MethodGet)

	router.HandleFunc("/booking/{pnr}", bookingHandler.GetBooking).Methods(http.MethodGet)
	router.HandleFunc("/customer/{customerId}", customerHandler.GetBookings).Methods(http.MethodGet)
	router.HandleFunc("/ws/pnr", wsHandler.Serve).Methods(http.MethodGet)

	// Wrap with logging, panic recovery, and CORS.
	root := middleware.CORS(middleware.Recoverer(middleware.RequestLogger(router)))

	// ── Start HTTP server ───────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in a goroutine so we can listen for shutdown signals.
	go func() {
		log.Printf("🚀 Server listening on %s", cfg.Server.ServerAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// ── Graceful shutdown ───────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("⏳ Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status          string            `json:"status"`
	Services        map[string]string `json:"services"`
	CircuitBreakers map[string]string `json:"circuitBreakers"`
}

// healthHandler returns an HTTP handler that checks store and cache
// connectivity and reports per-breaker state.
func healthHandler(pgPool *pgxpool.Pool, redisClient *redis.Client, registry *breaker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:          "ok",
			Services:        make(map[string]string),
			CircuitBreakers: make(map[string]string),
		}

		if err := db.HealthCheck(r.Context(), pgPool); err != nil {
			resp.Status = "degraded"
			resp.Services["store"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["store"] = "healthy"
		}

		if err := cache.HealthCheck(r.Context(), redisClient); err != nil {
			resp.Status = "degraded"
			resp.Services["cache"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["cache"] = "healthy"
		}

		for _, snap := range registry.Snapshots() {
			resp.CircuitBreakers[snap.Name] = snap.State
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}
