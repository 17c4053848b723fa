package graph

import "context"

// ============================================================================
// Store contract
// ============================================================================

// Row is one result record keyed by its RETURN aliases.
type Row map[string]any

// Executor runs a single parameterised Cypher statement and returns its rows.
// Labels, relationship types and property names are the only parts of a query
// ever built from strings; values always travel in params.
type Executor interface {
	Execute(ctx context.Context, query string, params map[string]any) ([]Row, error)
}

// ============================================================================
// Extraction records
// ============================================================================

// Record is a loosely typed extraction record. Entity records carry
// entity/type[/id], relation records carry source/relation/target; every
// other field becomes a property.
type Record map[string]any

// Extractor turns text into entity and relation records. Both methods return
// an empty slice on any internal failure.
type Extractor interface {
	ExtractEntities(ctx context.Context, text string) []Record
	ExtractRelations(ctx context.Context, text string, entities []Record) []Record
}

// ============================================================================
// Results
// ============================================================================

// UpsertStats counts the outcome of one batch upsert call.
type UpsertStats struct {
	Created int `json:"created"`
	Failed  int `json:"failed"`
}

// TextStats is returned by text based ingestion.
type TextStats struct {
	EntitiesExtracted    int `json:"entities_extracted"`
	RelationsExtracted   int `json:"relations_extracted"`
	NodesCreated         int `json:"nodes_created"`
	RelationshipsCreated int `json:"relationships_created"`
}

// Path is an ordered sequence of node display names.
type Path []string

// Fragment is one unit of retrieved context.
type Fragment struct {
	Text      string  `json:"text"`
	Relevance float64 `json:"relevance"`
}

// Mode selects the retrieval strategy.
type Mode string

const (
	ModeHybrid Mode = "hybrid"
	ModeGraph  Mode = "graph"
	ModeVector Mode = "vector"
)

// ParseMode maps a user supplied mode name to a Mode, defaulting to hybrid.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case "":
		return ModeHybrid, true
	case ModeHybrid, ModeGraph, ModeVector:
		return Mode(s), true
	default:
		return Mode(s), false
	}
}

// ============================================================================
// Inspection
// ============================================================================

// ClientStats are the in-process execution totals of a Neo4jClient.
type ClientStats struct {
	QueriesExecuted int64   `json:"queries_executed"`
	QueriesFailed   int64   `json:"queries_failed"`
	TotalQueryTime  float64 `json:"total_query_time"`
}

// GraphStats summarises the stored graph.
type GraphStats struct {
	TotalNodes         int64            `json:"total_nodes"`
	TotalRelationships int64            `json:"total_relationships"`
	NodeTypes          map[string]int64 `json:"node_types"`
	RelationshipTypes  map[string]int64 `json:"relationship_types"`
	HandlerStats       *ClientStats     `json:"handler_stats,omitempty"`
}

// ExportNode is a node in the visual export.
type ExportNode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// ExportLink is a directed edge in the visual export.
type ExportLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// GraphExport is the node/link payload consumed by the 3D front-end.
type GraphExport struct {
	Nodes []ExportNode `json:"nodes"`
	Links []ExportLink `json:"links"`
}
