package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsErrorType_FollowsWrapChain(t *testing.T) {
	base := NewGraphQueryFailed("MATCH (n)\nRETURN n", fmt.Errorf("boom"))
	wrapped := fmt.Errorf("failed to upsert node: %w", base)

	assert.True(t, IsErrorType(wrapped, ErrorTypeGraph))
	assert.False(t, IsErrorType(wrapped, ErrorTypeIngest))
	assert.Contains(t, base.Error(), "MATCH (n) ...")
	assert.Equal(t, "MATCH (n)\nRETURN n", base.Query)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection", NewGraphConnectionFailed("bolt://x", fmt.Errorf("refused")), true},
		{"cancelled", NewContextCancelled("import", context.Canceled), false},
		{"llm retryable", NewLLMFailed("m", 3, true, nil), true},
		{"llm permanent", NewLLMFailed("m", 1, false, nil), false},
		{"bundle 503", NewBundleFetchFailed("u", 503, nil), true},
		{"bundle 404", NewBundleFetchFailed("u", 404, nil), false},
		{"validation", NewInvalidRecord("missing type"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(fmt.Errorf("wrap: %w", tt.err)))
		})
	}
}

func TestUnknownMatrixMessage(t *testing.T) {
	err := NewUnknownMatrix("pre", []string{"enterprise", "ics", "mobile"})
	assert.Equal(t, `[config] unknown matrix "pre" (known: enterprise, ics, mobile)`, err.Error())
	assert.True(t, IsErrorType(err, ErrorTypeConfig))
}
