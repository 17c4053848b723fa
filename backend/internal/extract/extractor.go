package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"cybergraph/backend/internal/constants"
	"cybergraph/backend/internal/graph"
	"cybergraph/backend/pkg/logger"
)

// DefaultEntityTypes is the cybersecurity taxonomy offered to the LLM.
var DefaultEntityTypes = []string{
	"Technique", "Tactic", "ThreatGroup", "Malware", "Tool",
	"CVE", "CWE", "Protocol", "Indicator", "Asset", "Mitigation",
}

// Completer is the LLM call the extractor depends on.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMsg string) (string, error)
}

// LLMExtractor implements graph.Extractor by prompting an LLM for JSON arrays.
type LLMExtractor struct {
	llm         Completer
	entityTypes []string
	logger      *zap.Logger
}

var _ graph.Extractor = (*LLMExtractor)(nil)

// NewLLMExtractor creates an extractor. Empty entityTypes uses DefaultEntityTypes.
func NewLLMExtractor(llm Completer, entityTypes []string) *LLMExtractor {
	if len(entityTypes) == 0 {
		entityTypes = DefaultEntityTypes
	}
	return &LLMExtractor{
		llm:         llm,
		entityTypes: append([]string(nil), entityTypes...),
		logger:      logger.Named("extractor"),
	}
}

const systemPrompt = "You extract structured cybersecurity knowledge from text. You answer with JSON only."

// ExtractEntities returns {entity, type, confidence} records, or none on any failure.
func (e *LLMExtractor) ExtractEntities(ctx context.Context, text string) []graph.Record {
	prompt := fmt.Sprintf(`Extract cybersecurity entities from the following text.

Entity types: %s

Text:
%s

Return ONLY a JSON array of entities in this exact format:
[
  {"entity": "APT29", "type": "ThreatGroup", "confidence": 0.95},
  {"entity": "Phishing", "type": "Technique", "confidence": 0.90}
]

JSON output:`, strings.Join(e.entityTypes, ", "), truncate(text, constants.MaxExtractionChars))

	records, err := e.complete(ctx, prompt)
	if err != nil {
		e.logger.Error("Entity extraction failed", zap.Error(err))
		return []graph.Record{}
	}
	e.logger.Info("Extracted entities", zap.Int("count", len(records)))
	return records
}

// ExtractRelations returns {source, relation, target, confidence} records
// between the given entities, or none when fewer than two entities exist.
func (e *LLMExtractor) ExtractRelations(ctx context.Context, text string, entities []graph.Record) []graph.Record {
	if len(entities) < 2 {
		return []graph.Record{}
	}

	names := make([]string, 0, constants.MaxRelationEntities)
	for _, ent := range entities {
		if len(names) == constants.MaxRelationEntities {
			break
		}
		if name, ok := ent["entity"].(string); ok && name != "" {
			names = append(names, name)
		}
	}

	prompt := fmt.Sprintf(`Identify relationships between these cybersecurity entities based on the text.

Entities: %s

Text:
%s

Return ONLY a JSON array of relationships:
[
  {"source": "APT29", "relation": "USES", "target": "Phishing", "confidence": 0.85},
  {"source": "Phishing", "relation": "EXPLOITS", "target": "CVE-2021-1234", "confidence": 0.90}
]

JSON output:`, strings.Join(names, ", "), truncate(text, constants.MaxExtractionChars))

	records, err := e.complete(ctx, prompt)
	if err != nil {
		e.logger.Error("Relation extraction failed", zap.Error(err))
		return []graph.Record{}
	}
	e.logger.Info("Extracted relations", zap.Int("count", len(records)))
	return records
}

func (e *LLMExtractor) complete(ctx context.Context, prompt string) ([]graph.Record, error) {
	reply, err := e.llm.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	return ParseRecords(reply)
}

var jsonArray = regexp.MustCompile(`(?s)\[.*\]`)

// ParseRecords pulls the outermost JSON array out of an LLM reply, repairs
// common damage (trailing commas, single quotes, truncation) and keeps only
// the object elements.
func ParseRecords(reply string) ([]graph.Record, error) {
	raw := jsonArray.FindString(reply)
	if raw == "" {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return nil, fmt.Errorf("failed to repair JSON: %w", repairErr)
		}
		if err := json.Unmarshal([]byte(repaired), &items); err != nil {
			return nil, fmt.Errorf("failed to decode repaired JSON: %w", err)
		}
	}

	records := make([]graph.Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			records = append(records, graph.Record(m))
		}
	}
	return records, nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
