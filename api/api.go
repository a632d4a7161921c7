// Package api exposes the dispatch engine over HTTP.
//
//	POST /api/v1/jobs                 create a job
//	GET  /api/v1/jobs/:job_id         poll a job
//	GET  /api/v1/jobs/:job_id/events  stream job events (SSE)
//	POST /api/v1/validate_url/        check a YouTube URL
//	GET  /api/v1/preview/             probe video metadata
//	GET  /health                      store ping
//	GET  /metrics                     Prometheus exposition
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/viralclips/dispatch/download"
	"github.com/viralclips/dispatch/engine"
)

// Previewer fetches video metadata without downloading.
type Previewer interface {
	Preview(ctx context.Context, url string) (download.Preview, error)
}

// API wires the HTTP handlers for the dispatch system.
type API struct {
	eng       *engine.Engine
	previewer Previewer
	events    EventSource
	keepAlive time.Duration
	logger    *slog.Logger
}

// Option configures an API.
type Option func(*API)

// WithPreviewer enables the preview route.
func WithPreviewer(p Previewer) Option {
	return func(a *API) { a.previewer = p }
}

// WithEvents enables the job event stream route.
func WithEvents(src EventSource) Option {
	return func(a *API) { a.events = src }
}

// WithKeepAlive sets the idle interval between SSE keep-alive comments.
func WithKeepAlive(d time.Duration) Option {
	return func(a *API) { a.keepAlive = d }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) { a.logger = l }
}

// New creates an API from a dispatch Engine.
func New(eng *engine.Engine, opts ...Option) *API {
	a := &API{eng: eng, keepAlive: DefaultKeepAlive, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns a gin engine with all routes and the default
// middleware installed.
func (a *API) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(a.logger))
	a.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers all dispatch routes on r.
func (a *API) RegisterRoutes(r gin.IRouter) {
	r.GET("/", a.welcome)
	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(a.eng.Metrics().Handler()))

	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		jobs.POST("", a.createJob)
		jobs.POST("/", a.createJob)
		jobs.GET("/:job_id", a.getJob)
		if a.events != nil {
			jobs.GET("/:job_id/events", a.jobEvents)
		}

		v1.POST("/validate_url", a.validateURL)
		v1.POST("/validate_url/", a.validateURL)

		if a.previewer != nil {
			v1.GET("/preview", a.preview)
			v1.GET("/preview/", a.preview)
		}
	}
}
