package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mazecoord/internal/broadcast"
	"mazecoord/internal/config"
	"mazecoord/internal/coordinator"
	"mazecoord/internal/db"
	"mazecoord/internal/events"
	"mazecoord/internal/gamedata"
	"mazecoord/internal/metrics"
	"mazecoord/internal/rooms"
)

const (
	shutdownTimeout = 10 * time.Second
	lifecycleBuffer = 256
)

// New wires a Server from configuration. database may be nil.
func New(cfg config.Config, logger *slog.Logger, database *db.DB) (*Server, error) {
	roleSet, err := gamedata.ParseRoleSet(cfg.Roles, cfg.RequiredParticipants)
	if err != nil {
		return nil, fmt.Errorf("role set: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	store := rooms.NewStore(rooms.Options{
		RoleSet: roleSet,
		Logger:  logger.With("component", "wshub"),
		OnDrop:  func(string) { m.Dropped.Inc() },
	})
	bus := events.NewBus(lifecycleBuffer)

	return &Server{
		Rooms: store,
		Coordinator: coordinator.New(coordinator.Options{
			Registry:          store,
			Logger:            logger,
			Metrics:           m,
			Bus:               bus,
			HeartbeatInterval: cfg.HeartbeatInterval,
			InactivityWarning: cfg.InactivityWarning,
			RoomTimeout:       cfg.RoomTimeout,
			EndedGrace:        cfg.EndedGrace,
		}),
		Broadcaster: broadcast.NewBroadcaster(),
		Metrics:     m,
		Gatherer:    reg,
		DB:          database,
		Config:      cfg,
		Log:         logger.With("component", "server"),
		bus:         bus,
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /rooms", s.handleRooms)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	return mux
}

func Run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	// Optional database connection
	var database *db.DB
	if cfg.DatabaseURL != "" {
		conn, err := db.Connect(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Warn("database unavailable, running without match history", "error", err)
		} else if err := conn.Migrate(); err != nil {
			logger.Error("database migration failed, running without match history", "error", err)
			conn.Close()
		} else {
			database = conn
			logger.Info("database connected and migrations applied")
		}
	} else {
		logger.Info("DATABASE_URL not set, running without match history")
	}

	srv, err := New(cfg, logger, database)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	recorded := make(chan struct{})
	go func() {
		srv.Record(recorderCtx)
		close(recorded)
	}()

	supervised := make(chan struct{})
	go func() {
		srv.Coordinator.Run(ctx)
		close(supervised)
	}()

	httpSrv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           srv.Routes(),
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpSrv.Addr, "required", cfg.RequiredParticipants)
		errc <- httpSrv.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("listen: %w", err)
		}
		stop()
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutdown: %w", err)
	}
	<-supervised
	stopRecorder()
	<-recorded
	srv.Broadcaster.Close()
	if database != nil {
		database.Close()
	}
	logger.Info("server stopped")
	return runErr
}
