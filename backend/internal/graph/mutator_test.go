package graph

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cybergraph/backend/pkg/errors"
)

func TestUpsertNodes_Idempotent(t *testing.T) {
	g := newMemGraph()
	m := NewMutator(g, nil)
	ctx := context.Background()

	records := []Record{{"entity": "APT29", "type": "ThreatGroup"}}
	first := m.UpsertNodes(ctx, records)
	second := m.UpsertNodes(ctx, records)

	assert.Equal(t, UpsertStats{Created: 1}, first)
	assert.Equal(t, UpsertStats{Created: 1}, second)
	require.Len(t, g.nodes, 1)
	node := g.nodes["ThreatGroup/APT29"]
	require.NotNil(t, node)
	assert.Equal(t, "APT29", node.props["id"])
	assert.Equal(t, "APT29", node.props["name"])
}

func TestUpsertNodes_ValidationIsolation(t *testing.T) {
	g := newMemGraph()
	m := NewMutator(g, nil)

	stats := m.UpsertNodes(context.Background(), []Record{
		{"entity": "X"},
		{"entity": "Y", "type": "Tool"},
		{"type": "Tool"},
		{"entity": "Z", "type": "$$$"},
	})

	assert.Equal(t, UpsertStats{Created: 1, Failed: 3}, stats)
	assert.Contains(t, g.nodes, "Tool/Y")
}

func TestUpsertNodes_ExplicitIDAndProperties(t *testing.T) {
	exec := &recordingExecutor{}
	m := NewMutator(exec, nil)

	stats := m.UpsertNodes(context.Background(), []Record{{
		"entity":     "Spearphishing Attachment",
		"type":       "Technique",
		"id":         "T1566.001",
		"confidence": 0.9,
		"platforms":  []any{"Windows", "macOS"},
		"meta":       map[string]any{"k": "v"},
		"name":       "overwritten?",
		"!!":         "nameless",
		"empty":      nil,
	}})
	require.Equal(t, UpsertStats{Created: 1}, stats)
	require.Len(t, exec.calls, 1)

	call := exec.calls[0]
	assert.Equal(t, "MERGE (n:`Technique` {id: $key})\n"+
		"SET n.name = $name\n"+
		"SET n.`confidence` = $p_confidence\n"+
		"SET n.`meta` = $p_meta\n"+
		"SET n.`platforms` = $p_platforms\n", call.Query)
	assert.Equal(t, "T1566.001", call.Params["key"])
	assert.Equal(t, "Spearphishing Attachment", call.Params["name"])
	assert.Equal(t, 0.9, call.Params["p_confidence"])
	assert.Equal(t, []string{"Windows", "macOS"}, call.Params["p_platforms"])
	assert.Equal(t, `{"k":"v"}`, call.Params["p_meta"])
	assert.NotContains(t, call.Params, "p_name")
	assert.NotContains(t, call.Params, "p_empty")
}

func TestUpsertNodes_InjectionAttemptsStaySanitized(t *testing.T) {
	exec := &recordingExecutor{}
	m := NewMutator(exec, nil)

	stats := m.UpsertNodes(context.Background(), []Record{{
		"entity":                    "x'}) DETACH DELETE (n) //",
		"type":                      "evil}) DETACH DELETE (n",
		"a = 1 WITH n MATCH (m) //": "value",
	}})
	require.Equal(t, UpsertStats{Created: 1}, stats)

	query := exec.calls[0].Query
	assert.Contains(t, query, "MERGE (n:`evilDETACHDELETEn` {id: $key})")
	assert.Contains(t, query, "SET n.`a1WITHnMATCHm` = $p_a1WITHnMATCHm")
	assert.NotContains(t, query, "x'})")
	assert.Equal(t, "x'}) DETACH DELETE (n) //", exec.calls[0].Params["name"])
}

func TestUpsertNodes_QueryFailureCountedPerRecord(t *testing.T) {
	exec := &recordingExecutor{respond: func(_ string, params map[string]any) ([]Row, error) {
		if params["key"] == "BAD" {
			return nil, fmt.Errorf("connection reset")
		}
		return nil, nil
	}}
	m := NewMutator(exec, nil)

	stats := m.UpsertNodes(context.Background(), []Record{
		{"entity": "bad", "type": "Tool"},
		{"entity": "good", "type": "Tool"},
	})
	assert.Equal(t, UpsertStats{Created: 1, Failed: 1}, stats)
	assert.Len(t, exec.calls, 2)
}

func TestUpsertRelationships_ResolvesByNameAndNormalisesType(t *testing.T) {
	g := newMemGraph()
	m := NewMutator(g, nil)
	ctx := context.Background()

	require.Equal(t, UpsertStats{Created: 2}, m.UpsertNodes(ctx, []Record{
		{"entity": "Phishing", "type": "Technique", "id": "PHISHING"},
		{"entity": "APT29", "type": "ThreatGroup"},
	}))

	stats := m.UpsertRelationships(ctx, []Record{
		{"source": "Phishing", "target": "APT29", "relation": "used by", "confidence": 0.8},
	})
	assert.Equal(t, UpsertStats{Created: 1}, stats)
	require.Len(t, g.edges, 1)
	props, ok := g.edges["Technique/PHISHING|USED_BY|ThreatGroup/APT29"]
	require.True(t, ok)
	assert.Equal(t, 0.8, props["confidence"])

	// Repeating the call merges instead of duplicating.
	m.UpsertRelationships(ctx, []Record{{"source": "Phishing", "target": "APT29", "relation": "used by"}})
	assert.Len(t, g.edges, 1)
}

func TestUpsertRelationships_NameOnlyMatch(t *testing.T) {
	g := newMemGraph()
	m := NewMutator(g, nil)
	ctx := context.Background()

	m.UpsertNodes(ctx, []Record{
		{"entity": "Cobalt Strike", "type": "Tool", "id": "S0154"},
		{"entity": "FIN7", "type": "ThreatGroup", "id": "G0046"},
	})

	stats := m.UpsertRelationships(ctx, []Record{{"source": "FIN7", "target": "Cobalt Strike", "relation": "uses"}})
	assert.Equal(t, UpsertStats{Created: 1}, stats)
	assert.Contains(t, g.edges, "ThreatGroup/G0046|USES|Tool/S0154")
}

func TestUpsertRelationships_Failures(t *testing.T) {
	g := newMemGraph()
	m := NewMutator(g, nil)
	ctx := context.Background()
	m.UpsertNodes(ctx, []Record{{"entity": "APT29", "type": "ThreatGroup"}})

	stats := m.UpsertRelationships(ctx, []Record{
		{"source": "APT29", "target": "Nobody", "relation": "uses"},
		{"source": "APT29"},
		{"target": "APT29"},
	})
	assert.Equal(t, UpsertStats{Failed: 3}, stats)
	assert.Empty(t, g.edges)
}

func TestUpsertRelationships_QueryShape(t *testing.T) {
	exec := &recordingExecutor{respond: func(string, map[string]any) ([]Row, error) {
		return []Row{{"created": int64(1)}}, nil
	}}
	m := NewMutator(exec, nil)

	stats := m.UpsertRelationships(context.Background(), []Record{{
		"source":    "Emotet",
		"source_id": "S0367",
		"target":    "Data Exfiltration",
	}})
	require.Equal(t, UpsertStats{Created: 1}, stats)

	call := exec.calls[0]
	assert.Contains(t, call.Query, "MERGE (s)-[r:`RELATED_TO`]->(t)")
	assert.True(t, strings.HasSuffix(call.Query, "RETURN count(r) AS created"))
	assert.Equal(t, "S0367", call.Params["source_key"])
	assert.Equal(t, "Emotet", call.Params["source_name"])
	assert.Equal(t, "DATA_EXFILTRATION", call.Params["target_key"])
	assert.Equal(t, "Data Exfiltration", call.Params["target_name"])
	assert.Contains(t, call.Query, "SET r.`sourceid` = $p_sourceid")
	assert.Equal(t, "S0367", call.Params["p_sourceid"])
}

func TestUpsertRelationships_KeepsEndpointIDsAsProperties(t *testing.T) {
	g := newMemGraph()
	m := NewMutator(g, nil)
	ctx := context.Background()
	m.UpsertNodes(ctx, []Record{
		{"entity": "Emotet", "type": "Malware", "id": "S0367"},
		{"entity": "T1566", "type": "Technique", "id": "T1566"},
	})

	stats := m.UpsertRelationships(ctx, []Record{{
		"source": "Emotet", "source_id": "S0367",
		"target": "T1566", "target_id": "T1566",
		"relation": "uses",
	}})
	require.Equal(t, UpsertStats{Created: 1}, stats)
	props, ok := g.edges["Malware/S0367|USES|Technique/T1566"]
	require.True(t, ok)
	assert.Equal(t, "S0367", props["sourceid"])
	assert.Equal(t, "T1566", props["targetid"])
	assert.NotContains(t, props, "source")
}

func TestBuildFromText(t *testing.T) {
	g := newMemGraph()
	extractor := &stubExtractor{
		entities: []Record{
			{"entity": "APT29", "type": "ThreatGroup", "confidence": 0.9},
			{"entity": "Phishing", "type": "Technique"},
			{"entity": "no type"},
		},
		relations: []Record{
			{"source": "APT29", "relation": "uses", "target": "Phishing"},
			{"source": "APT29", "relation": "uses", "target": "Ghost"},
		},
	}
	m := NewMutator(g, extractor)

	stats, err := m.BuildFromText(context.Background(), "APT29 uses phishing.")
	require.NoError(t, err)
	assert.Equal(t, &TextStats{
		EntitiesExtracted:    3,
		RelationsExtracted:   2,
		NodesCreated:         2,
		RelationshipsCreated: 1,
	}, stats)
	assert.Equal(t, "APT29 uses phishing.", extractor.gotText)
	assert.Len(t, extractor.gotInput, 3)
}

func TestBuildFromText_NoExtractor(t *testing.T) {
	m := NewMutator(newMemGraph(), nil)
	_, err := m.BuildFromText(context.Background(), "text")
	assert.ErrorIs(t, err, apperrors.ErrExtractorUnavailable)
}
