package graph

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cybergraph/backend/internal/constants"
	"cybergraph/backend/pkg/logger"
)

// DefaultStopWords are dropped from retrieval queries before keyword lookup.
var DefaultStopWords = []string{
	"what", "are", "the", "how", "is", "a", "to", "in", "used",
	"by", "common", "techniques", "for", "of", "and",
}

// Retriever assembles textual context for a question from the one-hop
// neighbourhoods of nodes matching its keywords.
type Retriever struct {
	exec      Executor
	stopWords map[string]struct{}
	logger    *zap.Logger
}

// NewRetriever creates a retriever. A nil or empty stopWords uses
// DefaultStopWords. The set is copied and never changes afterwards.
func NewRetriever(exec Executor, stopWords []string) *Retriever {
	if len(stopWords) == 0 {
		stopWords = DefaultStopWords
	}
	set := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return &Retriever{
		exec:      exec,
		stopWords: set,
		logger:    logger.Named("retriever"),
	}
}

// Keywords lowercases the query, strips '?' and '.', splits on whitespace and
// drops stop words and repeats.
func (r *Retriever) Keywords(query string) []string {
	cleaned := strings.NewReplacer("?", "", ".", "").Replace(strings.ToLower(query))
	var words []string
	for _, w := range strings.Fields(cleaned) {
		if _, stop := r.stopWords[w]; stop {
			continue
		}
		words = append(words, w)
	}
	return dedupeKeywords(words)
}

// Retrieve returns at most MaxContextFragments fragments for query. Every
// known mode runs the keyword graph search; an unknown mode returns nothing.
// A failing keyword query is logged and skipped.
func (r *Retriever) Retrieve(ctx context.Context, query string, mode Mode) []Fragment {
	switch mode {
	case ModeHybrid, ModeGraph, ModeVector:
	default:
		r.logger.Debug("Unknown retrieval mode", zap.String("mode", string(mode)))
		return []Fragment{}
	}

	keywords := r.Keywords(query)
	if len(keywords) == 0 {
		return []Fragment{}
	}

	fragments := newFragmentList(constants.MaxContextFragments)
	for _, kw := range keywords {
		if fragments.full() {
			break
		}
		rows, err := r.exec.Execute(ctx, neighbourhoodQuery, map[string]any{
			"keyword": kw,
			"limit":   constants.RowsPerKeyword,
		})
		if err != nil {
			retrievalKeywordFailures.Inc()
			r.logger.Warn("Keyword query failed", zap.String("keyword", kw), zap.Error(err))
			continue
		}
		for _, row := range rows {
			if text, ok := fragmentText(row); ok {
				fragments.add(Fragment{Text: text, Relevance: constants.FragmentRelevance})
			}
		}
	}

	r.logger.Debug("Retrieved context",
		zap.Strings("keywords", keywords),
		zap.Int("fragments", len(fragments.items)),
	)
	return fragments.items
}

const neighbourhoodQuery = `
MATCH (n)
WHERE toLower(n.name) CONTAINS $keyword OR toLower(n.description) CONTAINS $keyword
OPTIONAL MATCH (n)-[r]-(m)
RETURN n, r, m
LIMIT $limit`

// fragmentText renders "Entity: name (label) - description", followed by
// " | TYPE -> Entity: neighbour (label)" when the row has a neighbour.
func fragmentText(row Row) (string, bool) {
	n, ok := nodeFromRow(row, "n")
	if !ok {
		return "", false
	}

	text := fmt.Sprintf("Entity: %s (%s) - %s",
		getStringFromMap(n.Props, "name", ""),
		primaryLabel(n),
		getStringFromMap(n.Props, "description", ""),
	)

	rel, hasRel := relationshipFromRow(row, "r")
	m, hasNeighbour := nodeFromRow(row, "m")
	if hasRel && hasNeighbour {
		text += fmt.Sprintf(" | %s -> Entity: %s (%s)",
			rel.Type,
			getStringFromMap(m.Props, "name", ""),
			primaryLabel(m),
		)
	}
	return text, true
}
