package graph

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportingExecutor struct {
	recordingExecutor
}

func (*reportingExecutor) Stats() ClientStats {
	return ClientStats{QueriesExecuted: 7, QueriesFailed: 1, TotalQueryTime: 0.5}
}

func TestInspectorStats(t *testing.T) {
	exec := &reportingExecutor{}
	exec.respond = func(query string, _ map[string]any) ([]Row, error) {
		switch {
		case strings.Contains(query, "UNWIND labels(n)"):
			return []Row{{"label": "Technique", "count": int64(3)}, {"label": "Tactic", "count": int64(1)}}, nil
		case strings.Contains(query, "type(r)"):
			return nil, fmt.Errorf("boom")
		case strings.Contains(query, "count(n)"):
			return []Row{{"count": int64(4)}}, nil
		case strings.Contains(query, "count(r)"):
			return []Row{{"count": int64(2)}}, nil
		}
		return nil, nil
	}

	stats := NewInspector(exec).Stats(context.Background())
	assert.Equal(t, int64(4), stats.TotalNodes)
	assert.Equal(t, int64(2), stats.TotalRelationships)
	assert.Equal(t, map[string]int64{"Technique": 3, "Tactic": 1}, stats.NodeTypes)
	assert.Empty(t, stats.RelationshipTypes)
	require.NotNil(t, stats.HandlerStats)
	assert.Equal(t, int64(7), stats.HandlerStats.QueriesExecuted)
}

func TestInspectorListNodes(t *testing.T) {
	exec := &recordingExecutor{respond: func(string, map[string]any) ([]Row, error) {
		return []Row{{"n": node("1", map[string]any{"id": "T1059", "name": "Command and Scripting Interpreter"}, "Technique")}}, nil
	}}
	insp := NewInspector(exec)

	nodes, err := insp.ListNodes(context.Background(), "Tech-nique", 5000)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Technique", nodes[0]["_label"])
	assert.Equal(t, "MATCH (n:`Technique`) RETURN n LIMIT $limit", exec.calls[0].Query)
	assert.Equal(t, 1000, exec.calls[0].Params["limit"])

	nodes, err = insp.ListNodes(context.Background(), "();", 10)
	require.NoError(t, err)
	assert.Empty(t, nodes)
	assert.Len(t, exec.calls, 1)
}

func TestInspectorExport(t *testing.T) {
	apt := node("e1", map[string]any{"id": "G0016", "name": "APT29"}, "ThreatGroup")
	tool := node("e2", map[string]any{"title": "Untitled tool"}, "Tool")
	exec := &recordingExecutor{respond: func(string, map[string]any) ([]Row, error) {
		return []Row{
			{"n": apt, "r": neo4j.Relationship{Type: "USES"}, "m": tool},
			{"n": tool, "r": nil, "m": nil},
		}, nil
	}}

	export, err := NewInspector(exec).Export(context.Background(), 0, []string{"ThreatGroup", "!!"})
	require.NoError(t, err)
	assert.Equal(t, []ExportNode{
		{ID: "G0016", Name: "APT29", Label: "ThreatGroup"},
		{ID: "e2", Name: "Untitled tool", Label: "Tool"},
	}, export.Nodes)
	assert.Equal(t, []ExportLink{{Source: "G0016", Target: "e2", Type: "USES"}}, export.Links)
	assert.Equal(t, []string{"ThreatGroup"}, exec.calls[0].Params["labels"])
	assert.Equal(t, 500, exec.calls[0].Params["limit"])
}

func TestEnsureSchema_ContinuesPastFailures(t *testing.T) {
	exec := &recordingExecutor{respond: func(query string, _ map[string]any) ([]Row, error) {
		if strings.Contains(query, "cve_id_unique") {
			return nil, fmt.Errorf("unsupported")
		}
		return nil, nil
	}}

	result := EnsureSchema(context.Background(), exec)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, len(schemaConstraints)+len(schemaIndexes)-1, result.Applied)
	assert.Len(t, exec.calls, len(schemaConstraints)+len(schemaIndexes))
}
