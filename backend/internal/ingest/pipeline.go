package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cybergraph/backend/internal/constants"
	"cybergraph/backend/internal/graph"
	apperrors "cybergraph/backend/pkg/errors"
	"cybergraph/backend/pkg/logger"
)

// Source types recorded on Source nodes.
const (
	SourceTypePDF     = "PDF"
	SourceTypeYouTube = "YouTube"
	SourceTypeWeb     = "Web"
)

const userAgent = "cybergraph/1.0 (+knowledge-graph ingest)"

// Builder is the part of the graph mutator the pipelines drive.
type Builder interface {
	BuildFromText(ctx context.Context, text string) (*graph.TextStats, error)
	UpsertNodes(ctx context.Context, records []graph.Record) graph.UpsertStats
}

// Result reports one source ingestion.
type Result struct {
	*graph.TextStats
	SourceID   string `json:"source_id,omitempty"`
	SourceType string `json:"source_type,omitempty"`
	Title      string `json:"title,omitempty"`
	Characters int    `json:"characters"`
}

// Pipeline acquires text from a source, feeds it through extraction and
// records the Source node it came from.
type Pipeline struct {
	builder  Builder
	client   *http.Client
	maxChars int
	ytdlp    string
	logger   *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHTTPClient replaces the default HTTP client used for web sources.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pipeline) { p.client = c }
}

// WithYtdlp overrides the yt-dlp binary used for YouTube transcripts. An
// empty path keeps YtdlpExecutable.
func WithYtdlp(path string) Option {
	return func(p *Pipeline) {
		if path != "" {
			p.ytdlp = path
		}
	}
}

// NewPipeline creates a pipeline. maxChars <= 0 uses DefaultMaxSourceChars.
func NewPipeline(builder Builder, maxChars int, opts ...Option) *Pipeline {
	if maxChars <= 0 {
		maxChars = constants.DefaultMaxSourceChars
	}
	p := &Pipeline{
		builder:  builder,
		client:   &http.Client{Timeout: 30 * time.Second},
		maxChars: maxChars,
		ytdlp:    YtdlpExecutable,
		logger:   logger.Named("ingest"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IngestText runs extraction over raw text without recording a Source node.
func (p *Pipeline) IngestText(ctx context.Context, text string) (*Result, error) {
	text = truncate(strings.TrimSpace(text), p.maxChars)
	if text == "" {
		return nil, apperrors.NewInvalidRecord("text is empty")
	}
	stats, err := p.builder.BuildFromText(ctx, text)
	if err != nil {
		sourcesTotal.WithLabelValues("text", "failed").Inc()
		return nil, err
	}
	sourcesTotal.WithLabelValues("text", "ingested").Inc()
	return &Result{TextStats: stats, Characters: len([]rune(text))}, nil
}

// ingestSource builds from text and then upserts the Source node. A failed
// Source upsert is logged; the extracted graph is already committed.
func (p *Pipeline) ingestSource(ctx context.Context, text string, source graph.Record) (*Result, error) {
	sourceType, _ := source["source_type"].(string)
	text = truncate(text, p.maxChars)

	stats, err := p.builder.BuildFromText(ctx, text)
	if err != nil {
		sourcesTotal.WithLabelValues(sourceType, "failed").Inc()
		return nil, err
	}

	source["type"] = constants.LabelSource
	if res := p.builder.UpsertNodes(ctx, []graph.Record{source}); res.Failed > 0 {
		p.logger.Warn("Failed to record source node",
			zap.Any("id", source["id"]),
			zap.String("source_type", sourceType),
		)
	}
	sourcesTotal.WithLabelValues(sourceType, "ingested").Inc()

	title, _ := source["title"].(string)
	if title == "" {
		title, _ = source["entity"].(string)
	}
	id, _ := source["id"].(string)
	p.logger.Info("Ingested source",
		zap.String("source_type", sourceType),
		zap.String("id", id),
		zap.Int("characters", len([]rune(text))),
		zap.Int("entities", stats.EntitiesExtracted),
	)
	return &Result{
		TextStats:  stats,
		SourceID:   id,
		SourceType: sourceType,
		Title:      title,
		Characters: len([]rune(text)),
	}, nil
}

// get issues a GET and returns the body of a 2xx response.
func (p *Pipeline) get(ctx context.Context, source, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewSourceFetchFailed(source, url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperrors.NewSourceFetchFailed(source, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewSourceFetchFailed(source, url, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, apperrors.NewSourceFetchFailed(source, url, err)
	}
	return body, nil
}

// contentKey derives a stable key for content without a natural id.
func contentKey(prefix, data string) string {
	return prefix + "_" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(data)).String()
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// normalizeSpace collapses runs of whitespace into single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
