/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the cash-flow projection server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and LOG_LEVEL
  2. Initialize SQLite store
  3. Build planner and compute the initial projection
  4. Configure HTTP router and refresh scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port     HTTP server port (default: 8080)
  -db       SQLite database path (default: lifeplan.db)
            Use ":memory:" for an in-memory database
  -horizon  Projection horizon in months (default: 13)
  -cron     Cron spec for the daily projection refresh (default: 0 6 * * *)

ENVIRONMENT:
  LOG_LEVEL  logrus level (debug, info, warn, error; default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and close the database
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - planner/planner.go: Projection orchestration
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

	"github.com/sirupsen/logrus"

	"github.com/lifeplan/cashflow-engine/api"
	"github.com/lifeplan/cashflow-engine/planner"
	"github.com/lifeplan/cashflow-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "lifeplan.db", "SQLite database path")
	horizon := flag.Int("horizon", 13, "projection horizon in months")
	cronSpec := flag.String("cron", api.DefaultRefreshSpec, "cron spec for the projection refresh")
	flag.Parse()

	log := logrus.New()
	if level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	// Build planner and compute the initial projection
	pl := planner.New(store, log)
	if err := pl.SetHorizon(*horizon); err != nil {
		log.WithError(err).Fatal("invalid horizon")
	}
	if err := pl.Refresh(context.Background()); err != nil {
		log.WithError(err).Warn("initial projection failed; will retry on first request")
	}

	// Wire HTTP surface and scheduler
	handler := api.NewHandler(pl, log)
	router := api.NewRouter(handler)

	scheduler := api.NewRefreshScheduler(pl, log, *cronSpec)
	if err := scheduler.Start(); err != nil {
		log.WithError(err).Fatal("failed to start refresh scheduler")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infof("server starting on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}
	scheduler.Stop()

	log.Info("server stopped")
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
