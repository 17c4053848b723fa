package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cybergraph/backend/internal/constants"
	"cybergraph/backend/pkg/logger"
)

// StatsReporter is implemented by executors that track their own totals.
type StatsReporter interface {
	Stats() ClientStats
}

// Inspector answers read-only questions about the stored graph.
type Inspector struct {
	exec   Executor
	logger *zap.Logger
}

// NewInspector creates an inspector over exec.
func NewInspector(exec Executor) *Inspector {
	return &Inspector{
		exec:   exec,
		logger: logger.Named("inspector"),
	}
}

// Stats counts nodes and relationships overall and per label/type. A failing
// count is logged and left at zero so callers always get a payload.
func (i *Inspector) Stats(ctx context.Context) *GraphStats {
	stats := &GraphStats{
		NodeTypes:         map[string]int64{},
		RelationshipTypes: map[string]int64{},
	}

	if rows, err := i.exec.Execute(ctx, "MATCH (n) RETURN count(n) AS count", nil); err != nil {
		i.logger.Warn("Failed to count nodes", zap.Error(err))
	} else if len(rows) > 0 {
		stats.TotalNodes = getInt64FromMap(rows[0], "count")
	}

	if rows, err := i.exec.Execute(ctx, "MATCH ()-[r]->() RETURN count(r) AS count", nil); err != nil {
		i.logger.Warn("Failed to count relationships", zap.Error(err))
	} else if len(rows) > 0 {
		stats.TotalRelationships = getInt64FromMap(rows[0], "count")
	}

	const labelQuery = `
MATCH (n)
UNWIND labels(n) AS label
RETURN label, count(*) AS count
ORDER BY count DESC`
	if rows, err := i.exec.Execute(ctx, labelQuery, nil); err != nil {
		i.logger.Warn("Failed to count node labels", zap.Error(err))
	} else {
		for _, row := range rows {
			stats.NodeTypes[getStringFromMap(row, "label", "")] = getInt64FromMap(row, "count")
		}
	}

	const typeQuery = `
MATCH ()-[r]->()
RETURN type(r) AS type, count(*) AS count
ORDER BY count DESC`
	if rows, err := i.exec.Execute(ctx, typeQuery, nil); err != nil {
		i.logger.Warn("Failed to count relationship types", zap.Error(err))
	} else {
		for _, row := range rows {
			stats.RelationshipTypes[getStringFromMap(row, "type", "")] = getInt64FromMap(row, "count")
		}
	}

	if reporter, ok := i.exec.(StatsReporter); ok {
		handler := reporter.Stats()
		stats.HandlerStats = &handler
	}
	return stats
}

// clampLimit bounds a caller supplied limit, using def for non-positive input.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// ListNodes returns the property maps of up to limit nodes, optionally
// restricted to one label.
func (i *Inspector) ListNodes(ctx context.Context, label string, limit int) ([]map[string]any, error) {
	limit = clampLimit(limit, constants.DefaultNodeListLimit, constants.MaxNodeListLimit)

	query := "MATCH (n) RETURN n LIMIT $limit"
	if label != "" {
		if SanitizeIdentifier(label) == "" {
			return []map[string]any{}, nil
		}
		query = fmt.Sprintf("MATCH (n:%s) RETURN n LIMIT $limit", QuoteLabel(label))
	}

	rows, err := i.exec.Execute(ctx, query, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	nodes := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		n, ok := nodeFromRow(row, "n")
		if !ok {
			continue
		}
		props := make(map[string]any, len(n.Props)+1)
		for k, v := range n.Props {
			props[k] = v
		}
		props["_label"] = primaryLabel(n)
		nodes = append(nodes, props)
	}
	return nodes, nil
}

const exportQuery = `
MATCH (n)
WHERE size($labels) = 0 OR any(l IN labels(n) WHERE l IN $labels)
WITH n LIMIT $limit
OPTIONAL MATCH (n)-[r]->(m)
RETURN n, r, m`

// Export returns nodes and their outgoing links for visualisation. Neighbours
// outside the node limit are still included so every link has both ends.
func (i *Inspector) Export(ctx context.Context, limit int, labels []string) (*GraphExport, error) {
	limit = clampLimit(limit, constants.DefaultExportLimit, constants.MaxExportLimit)

	filter := make([]string, 0, len(labels))
	for _, l := range labels {
		if s := SanitizeIdentifier(l); s != "" {
			filter = append(filter, s)
		}
	}

	rows, err := i.exec.Execute(ctx, exportQuery, map[string]any{
		"labels": filter,
		"limit":  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export graph: %w", err)
	}

	export := &GraphExport{Nodes: []ExportNode{}, Links: []ExportLink{}}
	seen := make(map[string]struct{})
	addNode := func(n ExportNode) {
		if _, ok := seen[n.ID]; ok {
			return
		}
		seen[n.ID] = struct{}{}
		export.Nodes = append(export.Nodes, n)
	}

	for _, row := range rows {
		n, ok := nodeFromRow(row, "n")
		if !ok {
			continue
		}
		src := exportNode(n.Props, n.ElementId, primaryLabel(n))
		addNode(src)

		rel, hasRel := relationshipFromRow(row, "r")
		m, hasNeighbour := nodeFromRow(row, "m")
		if !hasRel || !hasNeighbour {
			continue
		}
		dst := exportNode(m.Props, m.ElementId, primaryLabel(m))
		addNode(dst)
		export.Links = append(export.Links, ExportLink{Source: src.ID, Target: dst.ID, Type: rel.Type})
	}
	return export, nil
}

func exportNode(props map[string]any, elementID, label string) ExportNode {
	return ExportNode{
		ID:          getStringFromMap(props, "id", elementID),
		Name:        displayName(props),
		Label:       label,
		Description: getStringFromMap(props, "description", ""),
	}
}
