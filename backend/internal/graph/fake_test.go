package graph

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// ============================================================================
// Recording executor
// ============================================================================

type executedQuery struct {
	Query  string
	Params map[string]any
}

// recordingExecutor captures every statement and answers with respond.
type recordingExecutor struct {
	mu      sync.Mutex
	calls   []executedQuery
	respond func(query string, params map[string]any) ([]Row, error)
}

func (e *recordingExecutor) Execute(_ context.Context, query string, params map[string]any) ([]Row, error) {
	e.mu.Lock()
	e.calls = append(e.calls, executedQuery{Query: query, Params: params})
	e.mu.Unlock()
	if e.respond == nil {
		return nil, nil
	}
	return e.respond(query, params)
}

func (e *recordingExecutor) queries() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	for i, c := range e.calls {
		out[i] = c.Query
	}
	return out
}

// ============================================================================
// In-memory graph
// ============================================================================

var (
	mergeNodePattern = regexp.MustCompile("MERGE \\(n:`(\\w+)` \\{id: \\$key\\}\\)")
	mergeRelPattern  = regexp.MustCompile("MERGE \\(s\\)-\\[r:`(\\w+)`\\]->\\(t\\)")
)

type memNode struct {
	label string
	props map[string]any
}

// memGraph understands the node and relationship upserts issued by Mutator,
// enough to check merge semantics without a server.
type memGraph struct {
	nodes map[string]*memNode
	edges map[string]map[string]any
}

func newMemGraph() *memGraph {
	return &memGraph{
		nodes: map[string]*memNode{},
		edges: map[string]map[string]any{},
	}
}

func (g *memGraph) Execute(_ context.Context, query string, params map[string]any) ([]Row, error) {
	if m := mergeNodePattern.FindStringSubmatch(query); m != nil {
		key := params["key"].(string)
		id := m[1] + "/" + key
		n, ok := g.nodes[id]
		if !ok {
			n = &memNode{label: m[1], props: map[string]any{"id": key}}
			g.nodes[id] = n
		}
		n.props["name"] = params["name"]
		for k, v := range params {
			if strings.HasPrefix(k, "p_") {
				n.props[strings.TrimPrefix(k, "p_")] = v
			}
		}
		return nil, nil
	}

	if m := mergeRelPattern.FindStringSubmatch(query); m != nil {
		sources := g.match(params["source_key"], params["source_name"])
		targets := g.match(params["target_key"], params["target_name"])
		created := int64(0)
		for _, s := range sources {
			for _, t := range targets {
				edgeID := s + "|" + m[1] + "|" + t
				props, ok := g.edges[edgeID]
				if !ok {
					props = map[string]any{}
					g.edges[edgeID] = props
				}
				for k, v := range params {
					if strings.HasPrefix(k, "p_") {
						props[strings.TrimPrefix(k, "p_")] = v
					}
				}
				created++
			}
		}
		return []Row{{"created": created}}, nil
	}

	return nil, fmt.Errorf("memGraph: unsupported query %q", query)
}

func (g *memGraph) match(key, name any) []string {
	var ids []string
	for id, n := range g.nodes {
		if n.props["id"] == key || n.props["name"] == name {
			ids = append(ids, id)
		}
	}
	return ids
}

// ============================================================================
// Extractor
// ============================================================================

type stubExtractor struct {
	entities  []Record
	relations []Record
	gotText   string
	gotInput  []Record
}

func (s *stubExtractor) ExtractEntities(_ context.Context, text string) []Record {
	s.gotText = text
	return s.entities
}

func (s *stubExtractor) ExtractRelations(_ context.Context, _ string, entities []Record) []Record {
	s.gotInput = entities
	return s.relations
}
