package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/danmuck/amqpdetective/internal/capture"
	"github.com/danmuck/amqpdetective/internal/grammar"
	"github.com/danmuck/amqpdetective/internal/observability"
	"github.com/danmuck/amqpdetective/internal/protocol/frame"
	"github.com/danmuck/amqpdetective/internal/render"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "0.1.0"

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"service": "amqpdetective",
			"version": version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1")
	v1.GET("/grammar", s.handleGrammar)
	v1.POST("/analyze", s.handleAnalyze)
}

type ruleView struct {
	Name  string   `json:"name"`
	Steps []string `json:"steps"`
}

func (s *Server) handleGrammar(c *gin.Context) {
	rules := s.grammar.Rules()
	out := make([]ruleView, 0, len(rules))
	for _, r := range rules {
		steps := make([]string, len(r.Steps))
		for i, step := range r.Steps {
			steps[i] = step.String()
		}
		out = append(out, ruleView{Name: r.Name, Steps: steps})
	}
	c.JSON(http.StatusOK, gin.H{"root": s.grammar.Root(), "rules": out})
}

// handleAnalyze expects a multipart form with "client" and "server" capture
// files. The optional "rule" query parameter overrides the grammar root.
func (s *Server) handleAnalyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	client, status, err := s.formStream(c, "client", frame.SourceClient)
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	server, status, err := s.formStream(c, "server", frame.SourceServer)
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	res, err := capture.Analyze(s.grammar, c.Query("rule"), client, server)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, grammar.ErrUnknownRule) {
			status = http.StatusBadRequest
		}
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Set(observability.ContextOutcome, res.Outcome())
	c.JSON(http.StatusOK, render.NewReport(res, client.Err, server.Err))
}

func (s *Server) formStream(c *gin.Context, name string, source frame.Source) (capture.Stream, int, error) {
	fh, err := c.FormFile(name)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return capture.Stream{}, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit)
		}
		return capture.Stream{}, http.StatusBadRequest, fmt.Errorf("missing %s capture: %w", name, err)
	}
	data, err := readPart(fh, s.maxCaptureBytes)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, capture.ErrTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		return capture.Stream{}, status, fmt.Errorf("%s capture: %w", name, err)
	}
	return capture.Decode(source, fh.Filename, data), http.StatusOK, nil
}

func readPart(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return capture.Read(f, limit)
}
