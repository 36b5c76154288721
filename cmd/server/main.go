/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the engagement engine server: configuration,
  logger, SQLite store, broadcast scheduler, HTTP API, graceful shutdown.

STARTUP SEQUENCE:
  1. Load env config (.env supported), apply flag overrides
  2. Build zap logger
  3. Open SQLite store
  4. Start the per-minute broadcast scheduler
  5. Start the HTTP server

CONFIGURATION:
  Environment variables (see config/config.go), overridable via flags:
    -port    HTTP server port
    -db      SQLite database path (":memory:" for in-memory)

DELIVERY:
  The chat-platform connection is an external collaborator. This binary
  wires a logging deliverer by default; deployment glue swaps in the real
  platform client through the same engage.Deliverer interface.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, drain active requests
  (30s timeout), stop the scheduler (waits for an in-flight tick), close
  the database.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/engagement-engine/api"
	"github.com/warp/engagement-engine/config"
	"github.com/warp/engagement-engine/engage"
	"github.com/warp/engagement-engine/logging"
	"github.com/warp/engagement-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags override the environment.
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	logger, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal("invalid reference timezone", zap.String("tz", cfg.Timezone), zap.Error(err))
	}
	clock := engage.NewSystemClock(loc)

	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Default deliverer: log the broadcast. Deployment glue replaces this
	// with the real chat-platform client.
	deliverer := engage.DelivererFunc(func(_ context.Context, channel, text string) error {
		logger.Info("broadcast", zap.String("channel", channel), zap.String("text", text))
		return nil
	})

	service := engage.NewAttendanceService(store, store, clock)
	ranking := engage.NewRankingQuery(store)

	scheduler := engage.NewBroadcastScheduler(store, deliverer, clock, logger)
	scheduler.TickPeriod = cfg.TickPeriod
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(service, ranking, store, deliverer, api.AllowAll, logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.Int("port", *port),
			zap.String("db", *dbPath),
			zap.String("reference_tz", cfg.Timezone),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
