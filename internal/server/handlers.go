package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ivlev/composer/internal/composition"
	"github.com/ivlev/composer/internal/manifest"
	"github.com/ivlev/composer/internal/registry"
	"github.com/ivlev/composer/internal/slate"
	"github.com/ivlev/composer/internal/store"
)

// listCompositions handles GET /api/compositions
func (s *Server) listCompositions(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.List())
}

// getComposition handles GET /api/compositions/:id
func (s *Server) getComposition(c *gin.Context) {
	d, err := s.registry.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// createComposition handles POST /api/compositions
func (s *Server) createComposition(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	d, err := composition.DecodeJSON(body)
	if err != nil {
		s.fail(c, err)
		return
	}

	if err := s.registry.Register(d); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.compositions.Create(c.Request.Context(), d); err != nil {
		// keep the registry and the store in step
		_ = s.registry.Remove(d.ID())
		s.fail(c, err)
		return
	}

	s.logger.Info().Str("id", d.ID()).Msg("composition created")
	c.JSON(http.StatusCreated, d)
}

// deleteComposition handles DELETE /api/compositions/:id
func (s *Server) deleteComposition(c *gin.Context) {
	id := c.Param("id")
	if err := s.registry.Remove(id); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.compositions.Delete(c.Request.Context(), id); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// renderComposition handles POST /api/compositions/:id/render. The body is
// an object of prop overrides; an empty body renders with the defaults.
func (s *Server) renderComposition(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	overrides, err := composition.ParseProps(body)
	if err != nil {
		s.fail(c, err)
		return
	}

	resolved, err := s.registry.Resolve(c.Param("id"), overrides)
	if err != nil {
		s.fail(c, err)
		return
	}

	m := manifest.New(resolved, c.Query("output"))
	if err := s.jobs.Create(c.Request.Context(), m); err != nil {
		s.fail(c, err)
		return
	}

	s.logger.Info().
		Str("id", resolved.ID()).
		Str("job", m.JobID).
		Int("props", len(resolved.Props())).
		Msg("render job created")
	c.JSON(http.StatusCreated, m)
}

// listJobs handles GET /api/compositions/:id/jobs
func (s *Server) listJobs(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.registry.Get(id); err != nil {
		s.fail(c, err)
		return
	}
	jobs, err := s.jobs.ListByComposition(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if jobs == nil {
		jobs = []*manifest.Manifest{}
	}
	c.JSON(http.StatusOK, jobs)
}

// getJob handles GET /api/jobs/:id
func (s *Server) getJob(c *gin.Context) {
	m, err := s.jobs.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// slatePNG handles GET /api/compositions/:id/slate.png
func (s *Server) slatePNG(c *gin.Context) {
	d, err := s.registry.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	opts := slate.Options{MaxEdge: s.slateMaxEdge}
	if v := c.Query("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > slate.MaxEdgeLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("max must be an integer between 1 and %d", slate.MaxEdgeLimit)})
			return
		}
		opts.MaxEdge = n
	}
	opts.NoQR = c.Query("qr") == "false"

	img, err := slate.Render(d, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	defer slate.Release(img)

	var buf bytes.Buffer
	if err := slate.WritePNG(&buf, img); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// fail maps domain errors onto HTTP status codes.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var verr *composition.ValidationError
	var serr *composition.SerializationError
	switch {
	case errors.As(err, &verr), errors.As(err, &serr):
		status = http.StatusBadRequest
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, registry.ErrDuplicateID), errors.Is(err, store.ErrDuplicateID):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
