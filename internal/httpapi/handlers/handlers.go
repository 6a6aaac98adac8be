package handlers

import (
	"context"

	"animrender/internal/jobs"
	"animrender/internal/pkg/logger"
	"animrender/internal/ports"
	"animrender/internal/worker/processor"
)

// Scheduler hands a registered job to the background executor.
type Scheduler interface {
	Submit(req processor.Request) error
}

// Pinger is an optional dependency reported by the deep health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// VersionProber reports the installed renderer version.
type VersionProber interface {
	Version(ctx context.Context) (string, error)
}

type Deps struct {
	Registry        *jobs.Registry
	Scheduler       Scheduler
	SP              ports.StorageProvider
	Renderer        VersionProber
	RendererVersion string
	// Optional; nil when not configured.
	Postgres Pinger
	Redis    Pinger
	Log      *logger.Logger
}

type Handler struct {
	registry        *jobs.Registry
	scheduler       Scheduler
	sp              ports.StorageProvider
	renderer        VersionProber
	rendererVersion string
	postgres        Pinger
	redis           Pinger
	log             *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		registry:        d.Registry,
		scheduler:       d.Scheduler,
		sp:              d.SP,
		renderer:        d.Renderer,
		rendererVersion: d.RendererVersion,
		postgres:        d.Postgres,
		redis:           d.Redis,
		log:             log.WithComponent("http"),
	}
}
