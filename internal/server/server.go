// Package server exposes the registry over HTTP: composition lookup and
// registration, render-job requests and slate previews.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ivlev/composer/internal/registry"
	"github.com/ivlev/composer/internal/store"
	"github.com/rs/zerolog"
)

// Server wires the HTTP handlers to the registry and the persistent store.
type Server struct {
	registry     *registry.Registry
	compositions store.CompositionRepository
	jobs         store.JobRepository
	logger       zerolog.Logger
	slateMaxEdge int
}

type Options struct {
	Registry     *registry.Registry
	Compositions store.CompositionRepository
	Jobs         store.JobRepository
	Logger       zerolog.Logger
	SlateMaxEdge int
}

func New(opts Options) (*Server, error) {
	if opts.Registry == nil {
		return nil, errors.New("server requires a registry")
	}
	if opts.Compositions == nil || opts.Jobs == nil {
		return nil, errors.New("server requires composition and job repositories")
	}
	return &Server{
		registry:     opts.Registry,
		compositions: opts.Compositions,
		jobs:         opts.Jobs,
		logger:       opts.Logger,
		slateMaxEdge: opts.SlateMaxEdge,
	}, nil
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	api := router.Group("/api")
	{
		api.GET("/compositions", s.listCompositions)
		api.POST("/compositions", s.createComposition)
		api.GET("/compositions/:id", s.getComposition)
		api.DELETE("/compositions/:id", s.deleteComposition)
		api.POST("/compositions/:id/render", s.renderComposition)
		api.GET("/compositions/:id/jobs", s.listJobs)
		api.GET("/compositions/:id/slate.png", s.slatePNG)
		api.GET("/jobs/:id", s.getJob)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"compositions": s.registry.Len(),
		})
	})

	return router
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("listening")
	return s.Router().Run(addr)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
