package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golobby/container/v3"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cmd_controllers "github.com/keyduel/keyduel-api/cmd/api/controllers"
	pvp_in "github.com/keyduel/keyduel-api/pkg/domain/pvp/ports/in"
	pvp_out "github.com/keyduel/keyduel-api/pkg/domain/pvp/ports/out"
	pvp_services "github.com/keyduel/keyduel-api/pkg/domain/pvp/services"
	pvp_usecases "github.com/keyduel/keyduel-api/pkg/domain/pvp/usecases"
	db "github.com/keyduel/keyduel-api/pkg/infra/db/mongodb"
	"github.com/keyduel/keyduel-api/pkg/infra/events"
	"github.com/keyduel/keyduel-api/pkg/infra/ws"
)

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	port := envOr("PORT", "8080")
	mongoURI := envOr("MONGODB_URI", "mongodb://localhost:27017")
	mongoDB := envOr("MONGODB_DB", "keyduel")
	frontendURL := envOr("FRONTEND_URL", "http://localhost:5173")
	kafkaTopic := envOr("KAFKA_TOPIC", "pvp.match.results")
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, mongoURI, mongoDB)
	if err != nil {
		slog.Error("failed to connect to mongodb", "error", err)
		os.Exit(1)
	}
	if err := db.EnsureIndexes(ctx, database); err != nil {
		slog.Error("failed to ensure indexes", "error", err)
		os.Exit(1)
	}

	rankingRepo := db.NewRankingRepository(database)
	matchRepo := db.NewMatchRepository(database)

	var publisher pvp_out.ResultPublisher = events.NoopResultPublisher{}
	var kafkaPublisher *events.KafkaResultPublisher
	if kafkaBrokers != "" {
		kafkaPublisher = events.NewKafkaResultPublisher(strings.Split(kafkaBrokers, ","), kafkaTopic)
		publisher = kafkaPublisher
		slog.Info("match result stream enabled", "brokers", kafkaBrokers, "topic", kafkaTopic)
	}

	hub := ws.NewHub()
	coordinator := pvp_services.NewMatchCoordinator(
		rankingRepo, matchRepo, hub, publisher, pvp_services.DefaultMatchConfig())
	queue := pvp_services.NewMatchQueue(coordinator, hub, pvp_services.DefaultQueueConfig())

	joinQueue := pvp_usecases.NewJoinQueueUseCase(queue)
	leaveQueue := pvp_usecases.NewLeaveQueueUseCase(queue)
	queries := pvp_usecases.NewRankingQueryService(rankingRepo, matchRepo)

	c := container.New()
	mustRegister(c, func() pvp_in.JoinQueueCommandHandler { return joinQueue })
	mustRegister(c, func() pvp_in.LeaveQueueCommandHandler { return leaveQueue })
	mustRegister(c, func() pvp_in.RankingQuery { return queries })

	router := ws.NewRouter(hub, joinQueue, leaveQueue, coordinator)
	wsServer := ws.NewServer(hub, router, frontendURL)

	go queue.RunCleanup(ctx)
	go coordinator.RunDisconnectWatcher(ctx, hub.Closed())

	ctrl := cmd_controllers.NewPvPController(c)

	r := mux.NewRouter()
	r.Use(cmd_controllers.CORSMiddleware(frontendURL))
	r.Use(cmd_controllers.AuthMiddleware)
	r.HandleFunc("/pvp/ranking/{userId}", ctrl.GetRankingHandler(ctx)).Methods(http.MethodGet)
	r.HandleFunc("/pvp/leaderboard", ctrl.GetLeaderboardHandler(ctx)).Methods(http.MethodGet)
	r.HandleFunc("/pvp/queue/join", ctrl.JoinQueueHandler(ctx)).Methods(http.MethodPost)
	r.HandleFunc("/pvp/queue/leave", ctrl.LeaveQueueHandler(ctx)).Methods(http.MethodDelete)
	r.HandleFunc("/pvp/history/{userId}", ctrl.GetHistoryHandler(ctx)).Methods(http.MethodGet)
	r.HandleFunc("/ws", wsServer.Handle)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("keyduel api listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	coordinator.Shutdown()
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			slog.Error("kafka close error", "error", err)
		}
	}
}

func mustRegister[T any](c container.Container, resolver func() T) {
	if err := c.Singleton(resolver); err != nil {
		slog.Error("container registration failed", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
