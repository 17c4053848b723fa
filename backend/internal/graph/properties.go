package graph

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// property is one sanitized name/value pair ready to be SET on a node or edge.
type property struct {
	Name  string
	Value any
}

// PropertyValue converts an extraction value into one Neo4j can store:
// string, int64, float64, bool or []string. Lists with non-string elements
// become lists of their string forms, maps become their JSON text. A nil
// value reports false and is skipped by callers.
func PropertyValue(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case string, bool, int64, float64:
		return val, true
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case float32:
		return float64(val), true
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, true
		}
		if f, err := val.Float64(); err == nil {
			return f, true
		}
		return val.String(), true
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out, true
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if item == nil {
				continue
			}
			out = append(out, stringify(item))
		}
		return out, true
	case map[string]any:
		return stringify(val), true
	default:
		return fmt.Sprint(val), true
	}
}

// projectProperties turns every record field not listed in skip into a
// sanitized property. Fields whose names sanitize to nothing, or to a name in
// reserved, are dropped and reported back. The result is sorted by name so
// the generated query text is stable.
func projectProperties(rec Record, skip, reserved []string) (props []property, dropped []string) {
	keys := make([]string, 0, len(rec))
	for key := range rec {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// On a sanitized-name collision the lexically last original key wins.
	byName := make(map[string]any, len(rec))
	for _, key := range keys {
		raw := rec[key]
		if slices.Contains(skip, key) {
			continue
		}
		name := SanitizeIdentifier(key)
		if name == "" || slices.Contains(reserved, name) {
			dropped = append(dropped, key)
			continue
		}
		value, ok := PropertyValue(raw)
		if !ok {
			continue
		}
		byName[name] = value
	}

	props = make([]property, 0, len(byName))
	for name, value := range byName {
		props = append(props, property{Name: name, Value: value})
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })
	return props, dropped
}

// setClause renders one SET line per property against alias and adds the
// bound values to params.
func setClause(alias string, props []property, params map[string]any) string {
	var b strings.Builder
	for _, p := range props {
		fmt.Fprintf(&b, "SET %s.%s = $%s\n", alias, QuoteProperty(p.Name), paramName(p.Name))
		params[paramName(p.Name)] = p.Value
	}
	return b.String()
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}
