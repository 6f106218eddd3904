/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll hours engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Initialize logger
  3. Open the store (sqlite3 or postgres) and migrate
  4. Load rules, holidays and frequency documents
  5. Create API handler and router
  6. Start calendar scheduler when a frequency is configured
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS (override environment):
  -port       HTTP server port
  -driver     sqlite3 | postgres
  -db         SQLite path or postgres DSN (":memory:" for in-memory)
  -rules      overtime rules JSON file
  -holidays   holidays JSON file
  -frequency  payroll frequency JSON file

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler (waits for a running job)
  4. Close database connection

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/logging"
	"github.com/warp/payroll-engine/overtime"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	driver := flag.String("driver", cfg.DatabaseDriver, "Database driver (sqlite3 or postgres)")
	dsn := flag.String("db", cfg.DatabaseURL, "SQLite database path or postgres DSN")
	rulesFile := flag.String("rules", cfg.RulesFile, "Overtime rules JSON file")
	holidaysFile := flag.String("holidays", cfg.HolidaysFile, "Holidays JSON file")
	frequencyFile := flag.String("frequency", cfg.FrequencyFile, "Payroll frequency JSON file")
	flag.Parse()

	cfg.Port, cfg.DatabaseDriver, cfg.DatabaseURL = *port, *driver, *dsn
	cfg.RulesFile, cfg.HolidaysFile, cfg.FrequencyFile = *rulesFile, *holidaysFile, *frequencyFile

	log := logging.New(cfg.LogLevel, cfg.Environment)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Initialize store
	store, err := sqlite.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	// Rule configuration
	f := factory.NewFactory()
	var engineCfg overtime.Config
	if cfg.RulesFile != "" {
		if engineCfg.Rules, err = f.LoadRulesFile(cfg.RulesFile); err != nil {
			return err
		}
	}
	if cfg.HolidaysFile != "" {
		if engineCfg.Holidays, err = f.LoadHolidaysFile(cfg.HolidaysFile); err != nil {
			return err
		}
	}
	log.WithFields(logrus.Fields{
		"rules":    len(engineCfg.Rules),
		"holidays": len(engineCfg.Holidays),
	}).Info("rule configuration loaded")

	handler := api.NewHandler(store, engineCfg,
		api.WithLogger(log),
		api.WithServiceOptions(
			payroll.WithWorkers(cfg.AggregationWorkers),
			payroll.WithLeaveDayHours(cfg.LeaveDayHours),
		),
	)
	router := api.NewRouter(handler)

	// Scheduler
	if cfg.FrequencyFile != "" {
		freq, err := f.LoadFrequencyFile(cfg.FrequencyFile)
		if err != nil {
			return err
		}
		scheduler := api.NewCalendarScheduler(store, handler.Generator, freq, log)
		scheduler.Schedule = cfg.CalendarCron
		scheduler.MonthsAhead = cfg.CalendarMonthsAhead
		if _, err := scheduler.RunNow(context.Background()); err != nil {
			log.WithError(err).Warn("initial calendar generation failed")
		}
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()
	} else {
		log.Info("no frequency file configured, calendar scheduler disabled")
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":        server.Addr,
			"driver":      cfg.DatabaseDriver,
			"environment": cfg.Environment,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
