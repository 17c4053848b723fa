package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cybergraph/backend/internal/graph"
	apperrors "cybergraph/backend/pkg/errors"
)

// ============================================================================
// Inspection
// ============================================================================

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Inspector.Stats(c.Request.Context()))
}

func (s *Server) listNodes(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	nodes, err := s.svc.Inspector.ListNodes(c.Request.Context(), c.Query("label"), limit)
	if err != nil {
		s.fail(c, "Failed to list nodes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodes, "count": len(nodes)})
}

func (s *Server) export(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	var labels []string
	for _, v := range c.QueryArray("labels") {
		for _, l := range strings.Split(v, ",") {
			if l = strings.TrimSpace(l); l != "" {
				labels = append(labels, l)
			}
		}
	}

	export, err := s.svc.Inspector.Export(c.Request.Context(), limit, labels)
	if err != nil {
		s.fail(c, "Failed to export graph", err)
		return
	}
	c.JSON(http.StatusOK, export)
}

// ============================================================================
// Ingestion
// ============================================================================

func (s *Server) ingestAttack(c *gin.Context) {
	var req struct {
		Matrix            string `json:"matrix"`
		IncludeDeprecated bool   `json:"include_deprecated"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Matrix == "" {
		req.Matrix = "enterprise"
	}

	stats, err := s.svc.Attack.ImportAttack(c.Request.Context(), req.Matrix, req.IncludeDeprecated)
	if err != nil {
		s.fail(c, "Failed to import ATT&CK matrix", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) ingestText(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.svc.Ingester.IngestText(c.Request.Context(), req.Text)
	if err != nil {
		s.fail(c, "Failed to ingest text", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) ingestPDF(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		s.fail(c, "Failed to open upload", err)
		return
	}
	defer file.Close()

	res, err := s.svc.Ingester.IngestPDF(c.Request.Context(), header.Filename, file, header.Size)
	if err != nil {
		s.fail(c, "Failed to ingest PDF", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) ingestYouTube(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.svc.Ingester.IngestYouTube(c.Request.Context(), req.URL)
	if err != nil {
		s.fail(c, "Failed to ingest YouTube transcript", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) ingestURL(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.svc.Ingester.IngestURL(c.Request.Context(), req.URL)
	if err != nil {
		s.fail(c, "Failed to ingest web page", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ============================================================================
// Queries
// ============================================================================

func (s *Server) findPaths(c *gin.Context) {
	var req struct {
		Start    string `json:"start" binding:"required"`
		End      string `json:"end" binding:"required"`
		MaxDepth int    `json:"max_depth"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	paths := s.svc.Paths.FindPaths(c.Request.Context(), req.Start, req.End, req.MaxDepth)
	c.JSON(http.StatusOK, gin.H{
		"paths":     paths,
		"count":     len(paths),
		"max_depth": graph.ClampDepth(req.MaxDepth),
	})
}

type queryRequest struct {
	Question string `json:"question" binding:"required"`
	Mode     string `json:"mode"`
}

func (s *Server) bindQuery(c *gin.Context) (queryRequest, graph.Mode, bool) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, "", false
	}
	mode, ok := graph.ParseMode(req.Mode)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be one of hybrid, graph, vector"})
		return req, "", false
	}
	return req, mode, true
}

func (s *Server) retrieve(c *gin.Context) {
	req, mode, ok := s.bindQuery(c)
	if !ok {
		return
	}

	fragments := s.svc.Retriever.Retrieve(c.Request.Context(), req.Question, mode)
	c.JSON(http.StatusOK, gin.H{"fragments": fragments, "mode": mode})
}

func (s *Server) ask(c *gin.Context) {
	req, mode, ok := s.bindQuery(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	fragments := s.svc.Retriever.Retrieve(ctx, req.Question, mode)
	answer := s.svc.Generator.Generate(ctx, req.Question, fragments)
	c.JSON(http.StatusOK, gin.H{
		"answer":    answer,
		"fragments": fragments,
		"mode":      mode,
	})
}

// ============================================================================
// Helpers
// ============================================================================

// fail logs err and writes the status its type maps to.
func (s *Server) fail(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(msg, zap.Error(err), zap.String("request_id", c.GetString("request_id")))
	} else {
		s.log.Warn(msg, zap.Error(err), zap.String("request_id", c.GetString("request_id")))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		invalid   *apperrors.ErrInvalidRecord
		matrix    *apperrors.ErrUnknownMatrix
		source    *apperrors.ErrSourceFetchFailed
		bundle    *apperrors.ErrBundleFetchFailed
		cancelled *apperrors.ErrContextCancelled
	)
	switch {
	case errors.As(err, &invalid), errors.As(err, &matrix):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrExtractorUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &source), errors.As(err, &bundle):
		return http.StatusBadGateway
	case errors.As(err, &cancelled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// queryInt parses an optional integer query parameter; 0 when absent.
func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": key + " must be an integer"})
		return 0, false
	}
	return n, true
}
