package api

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cybergraph/backend/internal/attack"
	"cybergraph/backend/internal/graph"
	"cybergraph/backend/internal/ingest"
)

// Inspector reports on the stored graph.
type Inspector interface {
	Stats(ctx context.Context) *graph.GraphStats
	ListNodes(ctx context.Context, label string, limit int) ([]map[string]any, error)
	Export(ctx context.Context, limit int, labels []string) (*graph.GraphExport, error)
}

// PathFinder finds bounded paths between fuzzy-matched entities.
type PathFinder interface {
	FindPaths(ctx context.Context, startPattern, endPattern string, maxDepth int) []graph.Path
}

// Retriever assembles graph context for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, mode graph.Mode) []graph.Fragment
}

// Generator answers a question from retrieved fragments.
type Generator interface {
	Generate(ctx context.Context, question string, fragments []graph.Fragment) string
}

// Ingester runs the source pipelines.
type Ingester interface {
	IngestText(ctx context.Context, text string) (*ingest.Result, error)
	IngestPDF(ctx context.Context, name string, r io.ReaderAt, size int64) (*ingest.Result, error)
	IngestYouTube(ctx context.Context, videoURL string) (*ingest.Result, error)
	IngestURL(ctx context.Context, pageURL string) (*ingest.Result, error)
}

// AttackImporter loads an ATT&CK matrix by name.
type AttackImporter interface {
	ImportAttack(ctx context.Context, matrix string, includeDeprecated bool) (*attack.BundleStats, error)
}

// Services are the operations exposed over HTTP.
type Services struct {
	Inspector Inspector
	Paths     PathFinder
	Retriever Retriever
	Generator Generator
	Ingester  Ingester
	Attack    AttackImporter
}

// Server holds the HTTP handlers.
type Server struct {
	svc Services
	log *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(svc Services, log *zap.Logger) *gin.Engine {
	s := &Server{svc: svc, log: log}

	router := gin.New()
	router.MaxMultipartMemory = 32 << 20
	router.Use(requestID())
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())
	router.Use(cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/stats", s.stats)
		api.GET("/nodes", s.listNodes)
		api.GET("/graph/export", s.export)

		api.POST("/ingest/attack", s.ingestAttack)
		api.POST("/ingest/text", s.ingestText)
		api.POST("/ingest/pdf", s.ingestPDF)
		api.POST("/ingest/youtube", s.ingestYouTube)
		api.POST("/ingest/url", s.ingestURL)

		api.POST("/paths", s.findPaths)
		api.POST("/retrieve", s.retrieve)
		api.POST("/ask", s.ask)
	}

	return router
}
