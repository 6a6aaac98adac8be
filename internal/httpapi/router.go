package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"animrender/internal/httpapi/handlers"
	"animrender/internal/httpkit"
	"animrender/internal/pkg/errors"
	"animrender/internal/pkg/logger"
	"animrender/internal/pkg/middleware"
)

type Deps struct {
	Handlers       handlers.Deps
	AllowedOrigins []string
	// OutputDir is served under OutputPath when non-empty.
	OutputDir  string
	OutputPath string
	Log        *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	if d.Handlers.Log == nil {
		d.Handlers.Log = log
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	h := handlers.New(d.Handlers)

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- RENDER ----
	r.Post("/render", middleware.WrapHandler(log, h.PostRender))
	r.Get("/status/{code_id}", middleware.WrapHandler(log, h.GetStatus))

	// ---- OUTPUT (localfs) ----
	if d.OutputDir != "" {
		prefix := d.OutputPath
		if prefix == "" {
			prefix = "/output"
		}
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", handlers.OutputServer(d.OutputDir)))
	}

	r.NotFound(middleware.WrapHandler(log, func(w http.ResponseWriter, r *http.Request) error {
		return errors.New(errors.CodeNotFound, "route not found: "+r.URL.Path)
	}))

	return r
}
