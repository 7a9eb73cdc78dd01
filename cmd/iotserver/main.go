package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"iot-device-id/internal/api"
	"iot-device-id/internal/assistant"
	"iot-device-id/internal/cfg"
	"iot-device-id/internal/dataset"
	"iot-device-id/internal/metrics"
	"iot-device-id/internal/ml"
	"iot-device-id/internal/storage"
	"iot-device-id/internal/watch"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	// A missing .env is normal in production
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to read .env file")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logFile := setupLogging(c)
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ds, err := dataset.Load(c.DatasetPath, c.LabelColumn)
	if err != nil {
		log.Fatal().Err(err).Str("path", c.DatasetPath).Msg("reference dataset unavailable")
	}

	loadCfg := ml.LoadConfig{
		ModelDir:        c.ModelDir,
		LegacyModelPath: c.LegacyModelPath,
		Reference:       ds,
	}
	rt, err := ml.Load(loadCfg)
	if err != nil {
		log.Fatal().Err(err).Str("model_dir", c.ModelDir).Msg("model load failed")
	}

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	svc := ml.NewService(rt, ml.ServiceConfig{
		InputPolicy:     c.InputPolicy,
		ParallelScoring: c.ParallelScoring,
		CacheSize:       c.CacheSize,
		CacheTTL:        c.CacheTTL,
	}, mw)

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
		recordLoad(store, "startup", rt)
	}

	bot := assistant.New(func() assistant.Facts {
		current := svc.Runtime()
		return assistant.Facts{
			Samples:    ds.Len(),
			Features:   current.NumFeatures(),
			Models:     current.Pool().Len(),
			Categories: current.Registry().Labels(),
		}
	})

	server := api.NewServer(api.Dependencies{
		Service:        svc,
		Dataset:        ds,
		Assistant:      bot,
		Catalog:        store,
		Metrics:        mw,
		RequestTimeout: c.RequestTimeout,
	}, c.Port)

	var wg sync.WaitGroup
	startMetricsServer(ctx, &wg, c)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("API server failed")
			cancel()
		}
	}()

	if c.WatchModels {
		reload := func(ctx context.Context) error {
			next, err := ml.Load(loadCfg)
			if err != nil {
				return err
			}
			svc.Swap(next)
			if store != nil {
				recordLoad(store, "reload", next)
			}
			return nil
		}
		w := watch.New(reload, watch.DefaultDebounce, mw, c.ModelDir, c.LegacyModelPath)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("model watcher stopped")
			}
		}()
	}

	log.Info().
		Int("port", c.Port).
		Int("metrics_port", c.MetricsPort).
		Int("models", rt.Pool().Len()).
		Int("features", rt.NumFeatures()).
		Str("strategy", rt.Report().Strategy).
		Msg("device identification service ready")

	waitForShutdown(ctx, cancel, server, &wg)
}

// setupLogging applies the configured level and, when a log file is set, tees output into a
// rotating file.
func setupLogging(c cfg.Settings) io.Closer {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if c.LogFile == "" {
		return nil
	}
	rotating := &lumberjack.Logger{
		Filename:   c.LogFile,
		MaxSize:    c.LogMaxSizeMB,
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(os.Stderr, rotating)).With().Timestamp().Logger()
	return rotating
}

// initializeStorage opens the load catalog if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if !c.CatalogEnabled() {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("catalog initialization failed, continuing without load history")
		return nil
	}
	return store
}

func recordLoad(store *storage.Store, trigger string, rt *ml.Runtime) {
	id, err := store.RecordLoad(storage.NewLoadRecord(trigger, rt))
	if err != nil {
		log.Warn().Err(err).Str("trigger", trigger).Msg("failed to record model load")
		return
	}
	log.Debug().Uint64("load_id", id).Str("trigger", trigger).Msg("model load recorded")
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(ctx context.Context, wg *sync.WaitGroup, c cfg.Settings) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		if err := server.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to shutdown metrics server")
		}
	}()
	go func() {
		defer wg.Done()
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// waitForShutdown waits for shutdown signals and handles graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, server *api.Server, wg *sync.WaitGroup) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown API server")
	}
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all goroutines stopped")
	case <-time.After(10 * time.Second):
		log.Warn().Msg("shutdown timeout, forcing exit")
	}
}
