package graph

import (
	"regexp"
	"strings"

	"cybergraph/backend/internal/constants"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// DeriveKey builds a node key from a display name: uppercased, with each run
// of whitespace collapsed to a single underscore. DeriveKey("") is "".
func DeriveKey(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToUpper(name), "_")
}

// SanitizeIdentifier strips every character that is not an ASCII letter or
// digit. It is applied to every label and property name before the name is
// embedded in a query; values never go through it.
func SanitizeIdentifier(raw string) string {
	return strings.Map(func(r rune) rune {
		if isAlnum(r) {
			return r
		}
		return -1
	}, raw)
}

// SanitizeRelationType is SanitizeIdentifier that also keeps underscores, so
// multi-word relation types survive as USED_BY rather than USEDBY.
func SanitizeRelationType(raw string) string {
	return strings.Map(func(r rune) rune {
		if isAlnum(r) || r == '_' {
			return r
		}
		return -1
	}, raw)
}

// RelationType normalises a free-form relation name: whitespace runs and
// hyphens become underscores, the result is uppercased and sanitized.
// Empty input, or input that sanitizes to nothing, yields RELATED_TO.
func RelationType(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, "-", "_")
	rel := SanitizeRelationType(DeriveKey(raw))
	if rel == "" {
		return constants.DefaultRelationType
	}
	return rel
}

// QuoteLabel sanitizes and backtick-quotes a label. Quoting lets sanitized
// names that start with a digit (e.g. "3DES") stay valid Cypher.
func QuoteLabel(label string) string {
	return "`" + SanitizeIdentifier(label) + "`"
}

// QuoteProperty sanitizes and backtick-quotes a property name.
func QuoteProperty(name string) string {
	return "`" + SanitizeIdentifier(name) + "`"
}

// QuoteRelType sanitizes and backtick-quotes a relationship type.
func QuoteRelType(rel string) string {
	return "`" + SanitizeRelationType(rel) + "`"
}

// paramName is the bound parameter carrying the value of a sanitized property.
func paramName(property string) string {
	return "p_" + SanitizeIdentifier(property)
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
