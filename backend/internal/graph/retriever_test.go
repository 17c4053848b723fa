package graph

import (
	"context"
	"fmt"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywords(t *testing.T) {
	r := NewRetriever(&recordingExecutor{}, nil)

	assert.Equal(t, []string{"cve"}, r.Keywords("What is the CVE?"))
	assert.Empty(t, r.Keywords("What are the common techniques?"))
	assert.Equal(t, []string{"apt29", "phishing"}, r.Keywords("APT29 phishing. APT29 phishing?"))
}

func TestKeywords_CustomStopWords(t *testing.T) {
	r := NewRetriever(&recordingExecutor{}, []string{"Ransomware"})
	assert.Equal(t, []string{"what", "is", "lockbit"}, r.Keywords("What is LockBit ransomware?"))
}

func TestRetrieve_StopWordsOnlyIssuesNoQuery(t *testing.T) {
	exec := &recordingExecutor{}
	r := NewRetriever(exec, nil)

	frags := r.Retrieve(context.Background(), "What is the?", ModeGraph)
	assert.Empty(t, frags)
	assert.Empty(t, exec.calls)
}

func TestRetrieve_FormatsFragments(t *testing.T) {
	apt := node("1", map[string]any{"name": "APT29", "description": "Russian group"}, "ThreatGroup")
	tool := node("2", map[string]any{"name": "Mimikatz"}, "Tool")
	rel := neo4j.Relationship{ElementId: "r1", Type: "USES"}

	exec := &recordingExecutor{respond: func(string, map[string]any) ([]Row, error) {
		return []Row{
			{"n": apt, "r": rel, "m": tool},
			{"n": apt, "r": nil, "m": nil},
			{"n": apt, "r": rel, "m": tool},
		}, nil
	}}
	r := NewRetriever(exec, nil)

	frags := r.Retrieve(context.Background(), "apt29", ModeHybrid)
	require.Len(t, frags, 2)
	assert.Equal(t, "Entity: APT29 (ThreatGroup) - Russian group | USES -> Entity: Mimikatz (Tool)", frags[0].Text)
	assert.Equal(t, "Entity: APT29 (ThreatGroup) - Russian group", frags[1].Text)
	assert.Equal(t, 1.0, frags[0].Relevance)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, "apt29", exec.calls[0].Params["keyword"])
	assert.Equal(t, 5, exec.calls[0].Params["limit"])
}

func TestRetrieve_CapsAtTenFragments(t *testing.T) {
	exec := &recordingExecutor{respond: func(_ string, params map[string]any) ([]Row, error) {
		kw := params["keyword"].(string)
		rows := make([]Row, 0, 5)
		for i := 0; i < 5; i++ {
			rows = append(rows, Row{"n": node(fmt.Sprintf("%s%d", kw, i), map[string]any{"name": fmt.Sprintf("%s-%d", kw, i)}, "Technique")})
		}
		return rows, nil
	}}
	r := NewRetriever(exec, nil)

	frags := r.Retrieve(context.Background(), "alpha bravo charlie delta echo", ModeGraph)
	assert.Len(t, frags, 10)
	// Retrieval stops issuing queries once the cap is reached.
	assert.Len(t, exec.calls, 2)
}

func TestRetrieve_SkipsFailingKeyword(t *testing.T) {
	exec := &recordingExecutor{respond: func(_ string, params map[string]any) ([]Row, error) {
		if params["keyword"] == "broken" {
			return nil, fmt.Errorf("timeout")
		}
		return []Row{{"n": node("1", map[string]any{"name": "Emotet"}, "Malware")}}, nil
	}}
	r := NewRetriever(exec, nil)

	frags := r.Retrieve(context.Background(), "broken emotet", ModeGraph)
	require.Len(t, frags, 1)
	assert.Equal(t, "Entity: Emotet (Malware) - ", frags[0].Text)
}

func TestRetrieve_AllFailuresYieldEmpty(t *testing.T) {
	exec := &recordingExecutor{respond: func(string, map[string]any) ([]Row, error) {
		return nil, fmt.Errorf("connection refused")
	}}
	frags := NewRetriever(exec, nil).Retrieve(context.Background(), "emotet trickbot", ModeGraph)
	assert.NotNil(t, frags)
	assert.Empty(t, frags)
}

func TestRetrieve_EveryModeSearchesKeywords(t *testing.T) {
	for _, mode := range []Mode{ModeHybrid, ModeGraph, ModeVector} {
		t.Run(string(mode), func(t *testing.T) {
			exec := &recordingExecutor{respond: func(string, map[string]any) ([]Row, error) {
				return []Row{{"n": node("1", map[string]any{"name": "CVE-2021-44228"}, "CVE")}}, nil
			}}
			frags := NewRetriever(exec, nil).Retrieve(context.Background(), "What is the CVE?", mode)
			require.Len(t, exec.calls, 1)
			assert.Equal(t, "cve", exec.calls[0].Params["keyword"])
			require.Len(t, frags, 1)
			assert.Equal(t, "Entity: CVE-2021-44228 (CVE) - ", frags[0].Text)
		})
	}
}

func TestRetrieve_UnknownModeHasNoGraphQueries(t *testing.T) {
	exec := &recordingExecutor{}
	frags := NewRetriever(exec, nil).Retrieve(context.Background(), "emotet", Mode("semantic"))
	assert.Empty(t, frags)
	assert.Empty(t, exec.calls)
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode("")
	assert.True(t, ok)
	assert.Equal(t, ModeHybrid, m)

	m, ok = ParseMode("graph")
	assert.True(t, ok)
	assert.Equal(t, ModeGraph, m)

	_, ok = ParseMode("semantic")
	assert.False(t, ok)
}
