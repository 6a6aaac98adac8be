package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"animrender/internal/config"
	"animrender/internal/httpapi"
	"animrender/internal/httpapi/handlers"
	"animrender/internal/jobs"
	"animrender/internal/pkg/logger"
	"animrender/internal/pkg/shutdown"
	"animrender/internal/repositories"
	"animrender/internal/storage"
	"animrender/internal/worker"
	"animrender/internal/worker/command"
	"animrender/internal/worker/events"
	"animrender/internal/worker/processor"
	"animrender/internal/worker/renderer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().LogFatal("invalid configuration", err)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: cfg.Log.ServiceName,
		AddSource:   cfg.Log.Source,
	})

	provider := cfg.StorageProvider()
	log.Info("starting render service",
		"port", cfg.HTTP.Port,
		"storage", provider,
		"max_concurrent", cfg.Render.MaxConcurrent,
	)

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, cfg.ShutdownTimeout)

	var listeners []jobs.Listener
	hdeps := handlers.Deps{
		RendererVersion: cfg.Render.RendererVersion,
		Log:             log,
	}

	// PostgreSQL (opcional): historial de renders
	if cfg.Database.URL != "" {
		log.Info("connecting to PostgreSQL")
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			log.LogFatal("failed to connect to PostgreSQL", err)
		}
		shutdownMgr.RegisterSimple("postgres", pool.Close)

		if err := pool.Ping(ctx); err != nil {
			log.LogFatal("failed to ping PostgreSQL", err)
		}
		history := repositories.NewRenderHistoryRepository(pool)
		if err := history.EnsureSchema(ctx); err != nil {
			log.LogFatal("failed to prepare render_history table", err)
		}
		listeners = append(listeners, history.Recorder(provider, log))
		hdeps.Postgres = history
		log.Info("PostgreSQL connected")
	}

	// Redis (opcional): eventos de estado de jobs
	if cfg.Redis.Addr != "" {
		log.Info("connecting to Redis")
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		shutdownMgr.Register("redis", func(ctx context.Context) error {
			return rdb.Close()
		})

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.LogFatal("failed to ping Redis", err)
		}
		pub := events.NewRedisPublisher(rdb, cfg.Redis.EventsChannel, log)
		// Closed before the client so queued events are flushed.
		shutdownMgr.Register("redis-events", pub.Close)
		listeners = append(listeners, pub)
		hdeps.Redis = pub
		log.Info("Redis connected", "channel", cfg.Redis.EventsChannel)
	}

	// Storage
	sp, err := storage.NewProvider(ctx, cfg.Storage, provider)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	log.Info("storage provider initialized", "provider", sp.Provider())

	registry := jobs.NewRegistry(listeners...)

	runner := command.ExecRunner{}
	rc := renderer.NewCLIClient(cfg.Render.ManimBin, runner)
	if v, err := rc.Version(ctx); err != nil {
		log.Warn("renderer not available", "bin", cfg.Render.ManimBin, "error", err.Error())
	} else {
		log.Info("renderer detected", "version", v)
	}

	proc := processor.New(processor.Deps{
		Registry:      registry,
		Renderer:      rc,
		Audio:         processor.NewAudioMerger(runner, cfg.Render.CurlBin, cfg.Render.FFmpegBin),
		Publisher:     processor.NewPublisher(sp, cfg.Storage.URLExpiry),
		WorkspaceRoot: cfg.Render.WorkspaceRoot,
		Timeout:       cfg.Render.Timeout,
		Log:           log,
	})

	dispatcher := worker.NewDispatcher(worker.Deps{
		Executor:      proc,
		Registry:      registry,
		MaxConcurrent: cfg.Render.MaxConcurrent,
		Log:           log,
	})
	shutdownMgr.Register("dispatcher", dispatcher.Shutdown)

	hdeps.Registry = registry
	hdeps.Scheduler = dispatcher
	hdeps.SP = sp
	hdeps.Renderer = rc

	rdeps := httpapi.Deps{
		Handlers:       hdeps,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Log:            log,
	}
	if provider == config.ProviderLocalFS && cfg.Storage.ServeOutput {
		if err := os.MkdirAll(cfg.Storage.OutputDir, 0o755); err != nil {
			log.LogFatal("failed to create output directory", err)
		}
		rdeps.OutputDir = cfg.Storage.OutputDir
		rdeps.OutputPath = cfg.Storage.PublicPath
	}
	router := httpapi.NewRouter(rdeps)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Registered last so it stops accepting requests before jobs are drained.
	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}
