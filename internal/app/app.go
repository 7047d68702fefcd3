// Package app wires together a Config, a Database, a Trace, and a
// Loader into the small standalone harness exposed by
// cmd/rocprofvis-enginectl — this engine's analogue of the teacher's
// internal/app.App, which built an HTTP-serving log shipper out of the
// same config/logger/metrics/tracing scaffolding. There is no HTTP
// surface here (spec §1's explicit non-goal on transport/UI): Run
// drives one ReadMetadataAsync call to completion, reports what it
// found, and waits for an interrupt signal before shutting down
// cleanly.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/rocprofvis/datamodel/internal/binding"
	"github.com/rocprofvis/datamodel/internal/config"
	"github.com/rocprofvis/datamodel/internal/database"
	"github.com/rocprofvis/datamodel/internal/datamodel"
	"github.com/rocprofvis/datamodel/internal/loader"
	"github.com/rocprofvis/datamodel/pkg/enginemetrics"
	"github.com/rocprofvis/datamodel/pkg/enginetracing"
	"github.com/rocprofvis/datamodel/pkg/types"
)

// App bundles one bound (Trace, Database) pair with the ambient
// services (logger, metrics, tracing) the loader reports through.
type App struct {
	config  *config.Config
	logger  *logrus.Logger
	metrics *enginemetrics.Metrics
	tracing *enginetracing.Manager

	dbPath string
	db     *database.Database
	trace  *datamodel.Trace
	loader *loader.Loader
}

// New loads configuration, opens dbPath (auto-detecting its schema
// variant), constructs an empty Trace, binds the two together, and
// builds the Loader that drives every async request against them.
func New(configFile, dbPath string) (*App, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	var metrics *enginemetrics.Metrics
	if cfg.Metrics.Enabled {
		metrics = enginemetrics.New(prometheus.NewRegistry())
	} else {
		metrics = enginemetrics.NoOp()
	}

	tracingMgr, err := enginetracing.NewManager(cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	db, err := database.Open(dbPath, types.SchemaAutodetect, types.NewDbInstance(0, 0), logger)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}

	trace := datamodel.NewTrace(logger)
	db.BindTrace(trace)

	ld := loader.New(trace, db, logger, metrics, tracingMgr)

	return &App{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		tracing: tracingMgr,
		dbPath:  dbPath,
		db:      db,
		trace:   trace,
		loader:  ld,
	}, nil
}

// Trace returns the App's bound Trace, for callers embedding this
// harness and wanting to issue further loader requests after Run
// returns (e.g. a test driving ReadTraceSliceAsync).
func (a *App) Trace() *datamodel.Trace { return a.trace }

// Binding returns the bound Database's binding record.
func (a *App) Binding() *binding.Binding { return a.db.Binding() }

// Loader returns the App's Loader.
func (a *App) Loader() *loader.Loader { return a.loader }

// Run loads metadata from the bound database, logs a summary, then
// blocks until SIGINT/SIGTERM before shutting down.
func (a *App) Run() error {
	a.logger.WithField("db_path", a.dbPath).Info("loading trace metadata")

	if err := a.loadMetadataSync(); err != nil {
		return err
	}

	a.logger.WithFields(logrus.Fields{
		"tracks":           a.trace.NumTracks(),
		"memory_footprint": a.trace.GetMemoryFootprint(),
		"symbols_offset":   a.loader.SymbolsOffset(),
	}).Info("metadata loaded")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	a.logger.Info("shutdown signal received")
	return a.Stop()
}

func (a *App) loadMetadataSync() error {
	future := a.loader.ReadMetadataAsync(func(dbPath string, percent int, status types.ProgressStatus, message string) {
		a.logger.WithFields(logrus.Fields{
			"percent": percent,
			"status":  status.String(),
		}).Debug(message)
	})
	result := future.Wait(a.config.FutureDefaultTimeoutMs)
	if !result.Ok() {
		return fmt.Errorf("read metadata: %s", result)
	}
	return nil
}

// Stop flushes tracing and closes the bound database.
func (a *App) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.tracing != nil {
		if err := a.tracing.Shutdown(ctx); err != nil {
			a.logger.WithError(err).Warn("tracing shutdown failed")
		}
	}
	return a.db.Close()
}
