package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cybergraph/backend/internal/graph"
	apperrors "cybergraph/backend/pkg/errors"
)

// IngestURL fetches a web page, keeps its readable text and builds the
// graph from it.
func (p *Pipeline) IngestURL(ctx context.Context, pageURL string) (*Result, error) {
	body, err := p.get(ctx, "web", pageURL)
	if err != nil {
		return nil, err
	}

	title, text, err := readableText(body)
	if err != nil {
		return nil, apperrors.NewSourceFetchFailed("web", pageURL, err)
	}
	if text == "" {
		return nil, apperrors.NewSourceFetchFailed("web", pageURL, fmt.Errorf("page has no readable text"))
	}
	if title == "" {
		title = pageURL
	}

	return p.ingestSource(ctx, text, graph.Record{
		"entity":      title,
		"id":          contentKey("WEB", pageURL),
		"source_type": SourceTypeWeb,
		"url":         pageURL,
		"title":       title,
	})
}

// readableText returns the page title and the text of its headings,
// paragraphs and list items, one block per line.
func readableText(body []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse page: %w", err)
	}

	title := normalizeSpace(doc.Find("title").First().Text())
	doc.Find("script, style, nav, footer, header, aside, noscript").Remove()

	var blocks []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, li").Each(func(_ int, s *goquery.Selection) {
		if block := normalizeSpace(s.Text()); block != "" {
			blocks = append(blocks, block)
		}
	})
	return title, strings.Join(blocks, "\n"), nil
}
