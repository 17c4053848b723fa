package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"cybergraph/backend/internal/graph"
	apperrors "cybergraph/backend/pkg/errors"
)

// IngestPDF extracts the page text of a PDF and builds the graph from it.
// name is the file name recorded as the Source title.
func (p *Pipeline) IngestPDF(ctx context.Context, name string, r io.ReaderAt, size int64) (*Result, error) {
	text, err := p.pdfText(r, size)
	if err != nil {
		return nil, apperrors.NewSourceFetchFailed("pdf", name, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewSourceFetchFailed("pdf", name, fmt.Errorf("no extractable text"))
	}

	if name == "" {
		name = "PDF Document"
	}
	text = truncate(text, p.maxChars)
	return p.ingestSource(ctx, text, graph.Record{
		"entity":      name,
		"id":          contentKey("PDF", text),
		"source_type": SourceTypePDF,
		"title":       name,
	})
}

// openPDF is the PDF parser entry point.
var openPDF = pdf.NewReader

// pdfText concatenates the plain text of every page. Pages that fail to
// decode are skipped. The parser panics on some malformed files; that is
// reported as an error.
func (p *Pipeline) pdfText(r io.ReaderAt, size int64) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("malformed PDF: %v", rec)
		}
	}()

	reader, err := openPDF(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			p.logger.Warn("Skipping unreadable PDF page", zap.Int("page", i), zap.Error(err))
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
		if b.Len() > p.maxChars*4 {
			break
		}
	}
	return b.String(), nil
}
