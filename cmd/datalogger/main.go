// cmd/datalogger/main.go
package main

import (
	"context"
	"expvar"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tamzrod/datalogger/internal/clock"
	"github.com/tamzrod/datalogger/internal/config"
	"github.com/tamzrod/datalogger/internal/database"
	"github.com/tamzrod/datalogger/internal/logging"
	"github.com/tamzrod/datalogger/internal/sensor"
	"github.com/tamzrod/datalogger/internal/stream"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: datalogger <config.yaml>")
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.LoadFile(os.Args[1])
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	logger := setupLogging(cfg.Logging)

	// --------------------
	// Storage stack
	// --------------------

	dev, closeDevice, err := buildDevice(cfg.Device)
	if err != nil {
		log.Fatalf("device open failed: %v", err)
	}
	defer func() {
		if err := closeDevice(); err != nil {
			logger.Error("device close failed", "error", err)
		}
	}()

	ps, err := stream.NewPaged(dev, stream.Options{
		Slots:  cfg.Stream.CacheSlots,
		Logger: logger.With("component", "stream"),
	})
	if err != nil {
		log.Fatalf("stream setup failed: %v", err)
	}
	ps.SetMetrics(expvar.NewInt("stream_cache_hits"), expvar.NewInt("stream_cache_misses"))

	db := database.New(ps, database.Options{Logger: logger.With("component", "database")})
	if err := db.Init(database.Config{Capacity: cfg.Database.Capacity}); err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	// --------------------
	// Sensors
	// --------------------

	mgr := sensor.NewManager(db, sensor.Options{
		MaxSensors:        cfg.Manager.MaxSensors,
		FlushEveryUpdates: cfg.Manager.FlushEveryUpdates,
		FlushIntervalMs:   cfg.Manager.FlushIntervalMs,
		Logger:            logger.With("component", "sensor"),
	})

	closeSensors, err := buildSensors(cfg.Sensors, mgr, logger)
	if err != nil {
		log.Fatalf("sensor setup failed: %v", err)
	}
	defer closeSensors()

	logger.Info("datalogger started",
		"sensors", mgr.Len(),
		"files", db.Count(),
		"free_bytes", db.Free(),
	)

	// --------------------
	// Outer loop until SIGINT/SIGTERM
	// --------------------

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run(ctx, mgr, clock.NewMonotonic(), time.Duration(cfg.Manager.TickMs)*time.Millisecond)

	if err := mgr.Close(); err != nil {
		logger.Error("final flush failed", "error", err)
	}
	st := ps.Stats()
	logger.Info("datalogger stopped", "hits", st.Hits, "misses", st.Misses, "evictions", st.Evictions)
}

// setupLogging registers the configured sinks and installs the sink-backed
// logger as the slog default.
func setupLogging(c config.LoggingConfig) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err == nil {
		logging.SetLevel(lvl)
	}
	if c.Stdout {
		logging.AddSink(logging.NewWriterSink(os.Stdout))
	}
	if c.RingSize > 0 {
		ring := logging.NewRingSink(c.RingSize)
		logging.AddSink(ring)
		expvar.Publish("log_ring", expvar.Func(func() any { return ring.Lines() }))
	}

	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}
