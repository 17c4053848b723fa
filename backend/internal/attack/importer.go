package attack

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cybergraph/backend/internal/constants"
	"cybergraph/backend/internal/graph"
	apperrors "cybergraph/backend/pkg/errors"
	"cybergraph/backend/pkg/logger"
)

// nodeLabels maps each imported STIX type to its node label.
var nodeLabels = map[string]string{
	typeTechnique:  constants.LabelTechnique,
	typeTactic:     constants.LabelTactic,
	typeGroup:      constants.LabelThreatGroup,
	typeMalware:    constants.LabelMalware,
	typeTool:       constants.LabelTool,
	typeMitigation: constants.LabelMitigation,
}

// BundleFetcher retrieves the objects of a STIX bundle.
type BundleFetcher interface {
	FetchBundle(ctx context.Context, url string) ([]Object, error)
}

// BundleStats counts what one bundle import added.
type BundleStats struct {
	TechniquesAdded    int `json:"techniques_added"`
	TacticsAdded       int `json:"tactics_added"`
	GroupsAdded        int `json:"groups_added"`
	MalwareAdded       int `json:"malware_added"`
	ToolsAdded         int `json:"tools_added"`
	MitigationsAdded   int `json:"mitigations_added"`
	RelationshipsAdded int `json:"relationships_added"`
	ObjectsFailed      int `json:"objects_failed"`
}

// Importer loads one ATT&CK matrix into the graph in two passes: typed nodes
// keyed by ATT&CK id first, then relationships resolved by STIX id.
type Importer struct {
	exec    graph.Executor
	fetcher BundleFetcher
	matrix  string
	url     string
	logger  *zap.Logger
}

// NewImporter creates an importer for matrix. An unknown matrix is an error.
func NewImporter(exec graph.Executor, fetcher BundleFetcher, matrix string) (*Importer, error) {
	url, ok := MatrixURLs[matrix]
	if !ok {
		return nil, apperrors.NewUnknownMatrix(matrix, Matrices())
	}
	return &Importer{
		exec:    exec,
		fetcher: fetcher,
		matrix:  matrix,
		url:     url,
		logger:  logger.Named("attack").With(zap.String("matrix", matrix)),
	}, nil
}

// Matrix returns the matrix name this importer loads.
func (imp *Importer) Matrix() string { return imp.matrix }

// Import fetches the matrix bundle and imports it. A fetch failure aborts the
// import and is returned.
func (imp *Importer) Import(ctx context.Context, includeDeprecated bool) (*BundleStats, error) {
	imp.logger.Info("Fetching ATT&CK bundle", zap.String("url", imp.url))
	objects, err := imp.fetcher.FetchBundle(ctx, imp.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s matrix: %w", imp.matrix, err)
	}
	return imp.ImportBundle(ctx, objects, includeDeprecated), nil
}

// ImportBundle imports already fetched objects. Per-object failures are logged
// and counted in ObjectsFailed; relationships whose endpoints were not
// imported are skipped silently.
func (imp *Importer) ImportBundle(ctx context.Context, objects []Object, includeDeprecated bool) *BundleStats {
	if !includeDeprecated {
		active := make([]Object, 0, len(objects))
		for _, obj := range objects {
			if !obj.Inactive() {
				active = append(active, obj)
			}
		}
		imp.logger.Info("Filtered inactive objects",
			zap.Int("total", len(objects)),
			zap.Int("active", len(active)),
		)
		objects = active
	}

	stats := &BundleStats{}
	tactics := tacticNames(objects)

	// Pass 1: nodes
	for _, obj := range objects {
		var (
			counter *int
			err     error
		)
		switch obj.Type() {
		case typeTechnique:
			counter, err = &stats.TechniquesAdded, imp.ingestTechnique(ctx, obj, tactics)
		case typeTactic:
			counter, err = &stats.TacticsAdded, imp.ingestTactic(ctx, obj)
		case typeGroup:
			counter, err = &stats.GroupsAdded, imp.ingestGroup(ctx, obj)
		case typeMalware:
			counter, err = &stats.MalwareAdded, imp.ingestSoftware(ctx, obj, constants.LabelMalware)
		case typeTool:
			counter, err = &stats.ToolsAdded, imp.ingestSoftware(ctx, obj, constants.LabelTool)
		case typeMitigation:
			counter, err = &stats.MitigationsAdded, imp.ingestMitigation(ctx, obj)
		default:
			continue
		}
		imp.count(obj, counter, err, stats)
	}

	// Pass 2: relationships
	for _, obj := range objects {
		if obj.Type() != typeRelationship {
			continue
		}
		created, err := imp.ingestRelationship(ctx, obj)
		if err != nil {
			imp.count(obj, nil, err, stats)
			continue
		}
		if !created {
			graph.RecordsTotal.WithLabelValues(typeRelationship, "skipped").Inc()
			continue
		}
		imp.count(obj, &stats.RelationshipsAdded, nil, stats)
	}

	imp.logger.Info("ATT&CK import complete",
		zap.Int("techniques", stats.TechniquesAdded),
		zap.Int("tactics", stats.TacticsAdded),
		zap.Int("groups", stats.GroupsAdded),
		zap.Int("malware", stats.MalwareAdded),
		zap.Int("tools", stats.ToolsAdded),
		zap.Int("mitigations", stats.MitigationsAdded),
		zap.Int("relationships", stats.RelationshipsAdded),
		zap.Int("failed", stats.ObjectsFailed),
	)
	return stats
}

func (imp *Importer) count(obj Object, counter *int, err error, stats *BundleStats) {
	if err != nil {
		stats.ObjectsFailed++
		graph.RecordsTotal.WithLabelValues(obj.Type(), "failed").Inc()
		imp.logger.Warn("Failed to ingest object",
			zap.String("type", obj.Type()),
			zap.String("stix_id", obj.ID()),
			zap.String("name", obj.String("name")),
			zap.Error(err),
		)
		return
	}
	*counter++
	graph.RecordsTotal.WithLabelValues(obj.Type(), "created").Inc()
}

// tacticNames maps tactic short names ("initial-access") to display names
// for every tactic in the bundle.
func tacticNames(objects []Object) map[string]string {
	names := make(map[string]string)
	for _, obj := range objects {
		if obj.Type() != typeTactic {
			continue
		}
		if short, name := obj.String("x_mitre_shortname"), obj.String("name"); short != "" && name != "" {
			names[short] = name
		}
	}
	return names
}

// ============================================================================
// Node routines
// ============================================================================

func (imp *Importer) ingestTechnique(ctx context.Context, obj Object, tactics map[string]string) error {
	extID, url := obj.ExternalReference()
	query := `
MERGE (t:Technique {id: $id})
SET t.name = $name,
    t.description = $description,
    t.url = $url,
    t.platforms = $platforms,
    t.is_subtechnique = $is_subtechnique,
    t.stix_id = $stix_id`

	if _, err := imp.exec.Execute(ctx, query, map[string]any{
		"id":              extID,
		"name":            obj.Name(),
		"description":     obj.String("description"),
		"url":             url,
		"platforms":       obj.Strings("x_mitre_platforms"),
		"is_subtechnique": obj.Bool("x_mitre_is_subtechnique"),
		"stix_id":         obj.ID(),
	}); err != nil {
		return fmt.Errorf("failed to upsert technique %s: %w", extID, err)
	}

	linkQuery := `
MATCH (t:Technique {id: $id})
MERGE (tac:Tactic {name: $tactic})
MERGE (t)-[:IN_TACTIC]->(tac)`

	for _, phase := range obj.killChainPhases() {
		tactic, ok := tactics[phase]
		if !ok {
			tactic = phaseTitle(phase)
		}
		if _, err := imp.exec.Execute(ctx, linkQuery, map[string]any{"id": extID, "tactic": tactic}); err != nil {
			return fmt.Errorf("failed to link technique %s to tactic %s: %w", extID, tactic, err)
		}
	}
	return nil
}

// ingestTactic merges by name so tactics auto-created from technique phases
// and the tactic objects themselves end up as one node.
func (imp *Importer) ingestTactic(ctx context.Context, obj Object) error {
	extID, url := obj.ExternalReference()
	query := `
MERGE (t:Tactic {name: $name})
SET t.id = $id,
    t.description = $description,
    t.shortname = $shortname,
    t.url = $url,
    t.stix_id = $stix_id`

	if _, err := imp.exec.Execute(ctx, query, map[string]any{
		"id":          extID,
		"name":        obj.Name(),
		"description": obj.String("description"),
		"shortname":   obj.String("x_mitre_shortname"),
		"url":         url,
		"stix_id":     obj.ID(),
	}); err != nil {
		return fmt.Errorf("failed to upsert tactic %s: %w", extID, err)
	}
	return nil
}

func (imp *Importer) ingestGroup(ctx context.Context, obj Object) error {
	extID, url := obj.ExternalReference()
	query := `
MERGE (g:ThreatGroup {id: $id})
SET g.name = $name,
    g.description = $description,
    g.aliases = $aliases,
    g.url = $url,
    g.stix_id = $stix_id`

	if _, err := imp.exec.Execute(ctx, query, map[string]any{
		"id":          extID,
		"name":        obj.Name(),
		"description": obj.String("description"),
		"aliases":     obj.Strings("aliases"),
		"url":         url,
		"stix_id":     obj.ID(),
	}); err != nil {
		return fmt.Errorf("failed to upsert group %s: %w", extID, err)
	}
	return nil
}

func (imp *Importer) ingestSoftware(ctx context.Context, obj Object, label string) error {
	extID, url := obj.ExternalReference()
	query := fmt.Sprintf(`
MERGE (s:%s {id: $id})
SET s.name = $name,
    s.description = $description,
    s.labels = $labels,
    s.aliases = $aliases,
    s.platforms = $platforms,
    s.url = $url,
    s.stix_id = $stix_id`, graph.QuoteLabel(label))

	if _, err := imp.exec.Execute(ctx, query, map[string]any{
		"id":          extID,
		"name":        obj.Name(),
		"description": obj.String("description"),
		"labels":      obj.Strings("labels"),
		"aliases":     obj.Strings("x_mitre_aliases"),
		"platforms":   obj.Strings("x_mitre_platforms"),
		"url":         url,
		"stix_id":     obj.ID(),
	}); err != nil {
		return fmt.Errorf("failed to upsert %s %s: %w", label, extID, err)
	}
	return nil
}

func (imp *Importer) ingestMitigation(ctx context.Context, obj Object) error {
	extID, url := obj.ExternalReference()
	query := `
MERGE (m:Mitigation {id: $id})
SET m.name = $name,
    m.description = $description,
    m.url = $url,
    m.stix_id = $stix_id`

	if _, err := imp.exec.Execute(ctx, query, map[string]any{
		"id":          extID,
		"name":        obj.Name(),
		"description": obj.String("description"),
		"url":         url,
		"stix_id":     obj.ID(),
	}); err != nil {
		return fmt.Errorf("failed to upsert mitigation %s: %w", extID, err)
	}
	return nil
}

// ============================================================================
// Relationships
// ============================================================================

// ingestRelationship reports created=false without error when either endpoint
// is of a type that is never imported or was not found by its STIX id.
func (imp *Importer) ingestRelationship(ctx context.Context, obj Object) (bool, error) {
	sourceRef, targetRef := obj.String("source_ref"), obj.String("target_ref")
	sourceLabel, okSource := stixLabel(sourceRef)
	targetLabel, okTarget := stixLabel(targetRef)
	if !okSource || !okTarget {
		return false, nil
	}

	relType := graph.RelationType(obj.String("relationship_type"))
	query := fmt.Sprintf(`
MATCH (s:%s {stix_id: $source_id})
MATCH (t:%s {stix_id: $target_id})
MERGE (s)-[r:%s]->(t)
SET r.description = $description
RETURN count(r) AS created`,
		graph.QuoteLabel(sourceLabel), graph.QuoteLabel(targetLabel), graph.QuoteRelType(relType))

	rows, err := imp.exec.Execute(ctx, query, map[string]any{
		"source_id":   sourceRef,
		"target_id":   targetRef,
		"description": obj.String("description"),
	})
	if err != nil {
		return false, fmt.Errorf("failed to upsert relationship %s: %w", relType, err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	created, _ := rows[0]["created"].(int64)
	return created > 0, nil
}
