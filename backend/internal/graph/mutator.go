package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apperrors "cybergraph/backend/pkg/errors"
	"cybergraph/backend/pkg/logger"
)

var (
	entityFields   = []string{"entity", "type", "id"}
	relationFields = []string{"source", "target", "relation"}
	nodeReserved   = []string{"id", "name"}
)

// Mutator turns extraction records into idempotent node and relationship
// upserts. Every record is isolated: one bad record is counted and skipped.
type Mutator struct {
	exec      Executor
	extractor Extractor
	logger    *zap.Logger
}

// NewMutator creates a mutator. extractor may be nil when only the upsert
// operations are used.
func NewMutator(exec Executor, extractor Extractor) *Mutator {
	return &Mutator{
		exec:      exec,
		extractor: extractor,
		logger:    logger.Named("mutator"),
	}
}

// ============================================================================
// Nodes
// ============================================================================

// UpsertNodes merges one node per entity record.
func (m *Mutator) UpsertNodes(ctx context.Context, records []Record) UpsertStats {
	var stats UpsertStats
	for i, rec := range records {
		if err := m.upsertNode(ctx, rec); err != nil {
			stats.Failed++
			RecordsTotal.WithLabelValues("node", "failed").Inc()
			m.logger.Warn("Failed to upsert node",
				zap.Int("index", i),
				zap.String("entity", recordString(rec, "entity")),
				zap.String("type", recordString(rec, "type")),
				zap.Error(err),
			)
			continue
		}
		stats.Created++
		RecordsTotal.WithLabelValues("node", "created").Inc()
	}
	return stats
}

func (m *Mutator) upsertNode(ctx context.Context, rec Record) error {
	name := recordString(rec, "entity")
	if name == "" {
		return apperrors.NewInvalidRecord("missing entity")
	}
	rawType := recordString(rec, "type")
	if rawType == "" {
		return apperrors.NewInvalidRecord("missing type")
	}
	label := SanitizeIdentifier(rawType)
	if label == "" {
		return apperrors.NewInvalidRecord(fmt.Sprintf("type %q has no usable characters", rawType))
	}

	key := recordString(rec, "id")
	if key == "" {
		key = DeriveKey(name)
	}

	props, dropped := projectProperties(rec, entityFields, nodeReserved)
	if len(dropped) > 0 {
		m.logger.Warn("Dropped unusable property names",
			zap.String("key", key),
			zap.Strings("properties", dropped),
		)
	}

	params := map[string]any{"key": key, "name": name}
	query := fmt.Sprintf("MERGE (n:%s {id: $key})\nSET n.name = $name\n", QuoteLabel(label)) +
		setClause("n", props, params)

	if _, err := m.exec.Execute(ctx, query, params); err != nil {
		return fmt.Errorf("failed to upsert node %s: %w", key, err)
	}
	return nil
}

// ============================================================================
// Relationships
// ============================================================================

// UpsertRelationships merges one directed edge per relation record. Each
// endpoint matches a node whose id equals the explicit or derived key, or
// whose name equals the given string exactly.
func (m *Mutator) UpsertRelationships(ctx context.Context, records []Record) UpsertStats {
	var stats UpsertStats
	for i, rec := range records {
		if err := m.upsertRelationship(ctx, rec); err != nil {
			stats.Failed++
			RecordsTotal.WithLabelValues("relationship", "failed").Inc()
			m.logger.Warn("Failed to upsert relationship",
				zap.Int("index", i),
				zap.String("source", recordString(rec, "source")),
				zap.String("relation", recordString(rec, "relation")),
				zap.String("target", recordString(rec, "target")),
				zap.Error(err),
			)
			continue
		}
		stats.Created++
		RecordsTotal.WithLabelValues("relationship", "created").Inc()
	}
	return stats
}

func (m *Mutator) upsertRelationship(ctx context.Context, rec Record) error {
	source := recordString(rec, "source")
	target := recordString(rec, "target")
	if source == "" || target == "" {
		return apperrors.NewInvalidRecord("missing source or target")
	}

	relType := RelationType(recordString(rec, "relation"))

	sourceKey := recordString(rec, "source_id")
	if sourceKey == "" {
		sourceKey = DeriveKey(source)
	}
	targetKey := recordString(rec, "target_id")
	if targetKey == "" {
		targetKey = DeriveKey(target)
	}

	props, dropped := projectProperties(rec, relationFields, nil)
	if len(dropped) > 0 {
		m.logger.Warn("Dropped unusable property names",
			zap.String("relation", relType),
			zap.Strings("properties", dropped),
		)
	}

	params := map[string]any{
		"source_key":  sourceKey,
		"source_name": source,
		"target_key":  targetKey,
		"target_name": target,
	}
	query := "MATCH (s) WHERE s.id = $source_key OR s.name = $source_name\n" +
		"MATCH (t) WHERE t.id = $target_key OR t.name = $target_name\n" +
		fmt.Sprintf("MERGE (s)-[r:%s]->(t)\n", QuoteRelType(relType)) +
		setClause("r", props, params) +
		"RETURN count(r) AS created"

	rows, err := m.exec.Execute(ctx, query, params)
	if err != nil {
		return fmt.Errorf("failed to upsert relationship %s: %w", relType, err)
	}
	if len(rows) == 0 || getInt64FromMap(rows[0], "created") == 0 {
		return apperrors.ErrUnresolvedEndpoint
	}
	return nil
}

// ============================================================================
// Text ingestion
// ============================================================================

// BuildFromText extracts entities and relations from text and upserts them.
// Node upserts run before relationship upserts so new endpoints resolve.
func (m *Mutator) BuildFromText(ctx context.Context, text string) (*TextStats, error) {
	if m.extractor == nil {
		return nil, apperrors.ErrExtractorUnavailable
	}

	entities := m.extractor.ExtractEntities(ctx, text)
	relations := m.extractor.ExtractRelations(ctx, text, entities)

	nodes := m.UpsertNodes(ctx, entities)
	edges := m.UpsertRelationships(ctx, relations)

	stats := &TextStats{
		EntitiesExtracted:    len(entities),
		RelationsExtracted:   len(relations),
		NodesCreated:         nodes.Created,
		RelationshipsCreated: edges.Created,
	}
	m.logger.Info("Built graph from text",
		zap.Int("entities", stats.EntitiesExtracted),
		zap.Int("relations", stats.RelationsExtracted),
		zap.Int("nodes_created", stats.NodesCreated),
		zap.Int("relationships_created", stats.RelationshipsCreated),
		zap.Int("nodes_failed", nodes.Failed),
		zap.Int("relationships_failed", edges.Failed),
	)
	return stats, nil
}
