package graph

import (
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"cybergraph/backend/internal/constants"
)

// ============================================================================
// Value helpers
// ============================================================================

// getStringFromMap returns m[key] as a string, or defaultValue when the key is
// absent, nil or empty. Non-string values use their fmt form.
func getStringFromMap(m map[string]any, key, defaultValue string) string {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	s, ok := val.(string)
	if !ok {
		s = fmt.Sprint(val)
	}
	if s == "" {
		return defaultValue
	}
	return s
}

// getInt64FromMap reads a count column.
func getInt64FromMap(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// recordString reads a required extraction field, trimmed.
func recordString(rec Record, key string) string {
	val, ok := rec[key]
	if !ok || val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(val))
}

// displayName resolves a node's label for presentation: name, then title,
// then id, then "Unknown".
func displayName(props map[string]any) string {
	for _, key := range []string{"name", "title", "id"} {
		if s := getStringFromMap(props, key, ""); s != "" {
			return s
		}
	}
	return constants.UnknownNodeName
}

// primaryLabel returns the first label of a node, or "" when it has none.
func primaryLabel(node neo4j.Node) string {
	if len(node.Labels) == 0 {
		return ""
	}
	return node.Labels[0]
}

// nodeFromRow extracts a node column, tolerating NULLs from OPTIONAL MATCH.
func nodeFromRow(row Row, key string) (neo4j.Node, bool) {
	switch v := row[key].(type) {
	case neo4j.Node:
		return v, true
	case *neo4j.Node:
		if v != nil {
			return *v, true
		}
	}
	return neo4j.Node{}, false
}

// relationshipFromRow extracts a relationship column, tolerating NULLs.
func relationshipFromRow(row Row, key string) (neo4j.Relationship, bool) {
	switch v := row[key].(type) {
	case neo4j.Relationship:
		return v, true
	case *neo4j.Relationship:
		if v != nil {
			return *v, true
		}
	}
	return neo4j.Relationship{}, false
}
