// Package server is the thin HTTP boundary over the job manager: upload a
// PDF, poll conversion status, download the artifact. All conversion logic
// lives behind the jobs package; handlers only translate HTTP.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wudi/pdf2docx/jobs"
	"github.com/wudi/pdf2docx/observability"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// DefaultMaxUploadBytes caps accepted uploads at 20 MB, matching the
// advertised service limit.
const DefaultMaxUploadBytes = 20 << 20

// Server wires HTTP routes to the job manager.
type Server struct {
	mgr       *jobs.Manager
	log       observability.Logger
	maxUpload int64
}

// Config tunes the HTTP layer.
type Config struct {
	// MaxUploadBytes rejects larger uploads before submission. Zero selects
	// DefaultMaxUploadBytes.
	MaxUploadBytes int64
	Logger         observability.Logger
}

// New builds a Server over the given manager.
func New(mgr *jobs.Manager, cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	return &Server{mgr: mgr, log: cfg.Logger, maxUpload: cfg.MaxUploadBytes}
}

// Router returns the configured gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = 32 << 20

	api := r.Group("/api")
	api.POST("/convert", s.upload)
	api.GET("/status/:id", s.status)
	api.GET("/download/:id", s.download)
	return r
}

func (s *Server) upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only PDF files are allowed"})
		return
	}
	if fileHeader.Size > s.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("file exceeds maximum size of %d MB", s.maxUpload>>20),
		})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
		return
	}
	defer f.Close()

	id, err := s.mgr.Submit(f, fileHeader.Filename)
	if err != nil {
		s.log.Error("submit failed", observability.Error("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not accept upload"})
		return
	}
	s.log.Info("upload accepted",
		observability.String("job", id),
		observability.String("file", fileHeader.Filename),
		observability.Int64("size", fileHeader.Size),
	)
	c.JSON(http.StatusAccepted, gin.H{"job_id": id})
}

func (s *Server) status(c *gin.Context) {
	snap, err := s.mgr.Snapshot(c.Param("id"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invalid job ID"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status unavailable"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) download(c *gin.Context) {
	art, err := s.mgr.ArtifactFor(c.Param("id"))
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid job ID"})
		return
	case errors.Is(err, jobs.ErrNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": "file not ready for download"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "download unavailable"})
		return
	}

	data, err := os.ReadFile(art.Path)
	if err != nil {
		s.log.Error("read artifact", observability.String("job", c.Param("id")), observability.Error("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "artifact unreadable"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	c.Data(http.StatusOK, docxContentType, data)
}
