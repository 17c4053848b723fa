package extract

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybergraph/backend/internal/graph"
)

type fakeCompleter struct {
	replies []string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, _, userMsg string) (string, error) {
	f.prompts = append(f.prompts, userMsg)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func TestExtractEntities(t *testing.T) {
	llm := &fakeCompleter{replies: []string{
		"Sure! Here are the entities:\n```json\n[{\"entity\": \"APT29\", \"type\": \"ThreatGroup\", \"confidence\": 0.95}, \"noise\"]\n```",
	}}
	e := NewLLMExtractor(llm, nil)

	records := e.ExtractEntities(context.Background(), "APT29 sent phishing emails.")
	require.Len(t, records, 1)
	assert.Equal(t, "APT29", records[0]["entity"])
	assert.Equal(t, 0.95, records[0]["confidence"])
	assert.Contains(t, llm.prompts[0], "Entity types: Technique, Tactic, ThreatGroup")
}

func TestExtractEntities_TruncatesText(t *testing.T) {
	llm := &fakeCompleter{replies: []string{"[]"}}
	e := NewLLMExtractor(llm, []string{"Malware"})

	e.ExtractEntities(context.Background(), strings.Repeat("a", 3500)+"TAIL")
	assert.NotContains(t, llm.prompts[0], "TAIL")
	assert.Contains(t, llm.prompts[0], strings.Repeat("a", 3000))
	assert.Contains(t, llm.prompts[0], "Entity types: Malware\n")
}

func TestExtractEntities_FailuresYieldEmpty(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeCompleter
	}{
		{"llm error", &fakeCompleter{err: fmt.Errorf("connection refused")}},
		{"no json", &fakeCompleter{replies: []string{"I could not find any entities."}}},
		{"garbage", &fakeCompleter{replies: []string{"[{{{"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := NewLLMExtractor(tt.llm, nil).ExtractEntities(context.Background(), "text")
			assert.NotNil(t, records)
			assert.Empty(t, records)
		})
	}
}

func TestExtractRelations(t *testing.T) {
	llm := &fakeCompleter{replies: []string{
		`[{"source": "APT29", "relation": "USES", "target": "Phishing", "confidence": 0.85},]`,
	}}
	e := NewLLMExtractor(llm, nil)

	entities := []graph.Record{{"entity": "APT29"}, {"entity": "Phishing"}}
	records := e.ExtractRelations(context.Background(), "APT29 uses phishing", entities)
	require.Len(t, records, 1)
	assert.Equal(t, "USES", records[0]["relation"])
	assert.Contains(t, llm.prompts[0], "Entities: APT29, Phishing")
}

func TestExtractRelations_NeedsTwoEntities(t *testing.T) {
	llm := &fakeCompleter{}
	records := NewLLMExtractor(llm, nil).ExtractRelations(context.Background(), "text", []graph.Record{{"entity": "solo"}})
	assert.Empty(t, records)
	assert.Empty(t, llm.prompts)
}

func TestExtractRelations_LimitsEntityNames(t *testing.T) {
	llm := &fakeCompleter{replies: []string{"[]"}}
	entities := make([]graph.Record, 0, 30)
	for i := 0; i < 30; i++ {
		entities = append(entities, graph.Record{"entity": fmt.Sprintf("E%02d", i)})
	}

	NewLLMExtractor(llm, nil).ExtractRelations(context.Background(), "text", entities)
	assert.Contains(t, llm.prompts[0], "E19")
	assert.NotContains(t, llm.prompts[0], "E20")
}

func TestParseRecords_RepairsJSON(t *testing.T) {
	records, err := ParseRecords(`[{'entity': 'Emotet', 'type': 'Malware',}]`)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Emotet", records[0]["entity"])
}
