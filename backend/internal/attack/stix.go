package attack

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cybergraph/backend/internal/constants"
)

// MatrixURLs are the MITRE CTI bundles for each ATT&CK matrix.
var MatrixURLs = map[string]string{
	"enterprise": "https://raw.githubusercontent.com/mitre/cti/master/enterprise-attack/enterprise-attack.json",
	"mobile":     "https://raw.githubusercontent.com/mitre/cti/master/mobile-attack/mobile-attack.json",
	"ics":        "https://raw.githubusercontent.com/mitre/cti/master/ics-attack/ics-attack.json",
}

// Matrices lists the known matrix names in sorted order.
func Matrices() []string {
	names := make([]string, 0, len(MatrixURLs))
	for name := range MatrixURLs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// attackSources are the external_references source names and kill chain
// names that carry ATT&CK identifiers.
var attackSources = map[string]bool{
	"mitre-attack":        true,
	"mitre-mobile-attack": true,
	"mitre-ics-attack":    true,
}

// STIX object types handled by the importer.
const (
	typeTechnique    = "attack-pattern"
	typeTactic       = "x-mitre-tactic"
	typeGroup        = "intrusion-set"
	typeMalware      = "malware"
	typeTool         = "tool"
	typeMitigation   = "course-of-action"
	typeRelationship = "relationship"
)

// Bundle is a STIX 2.1 bundle.
type Bundle struct {
	Type    string   `json:"type"`
	ID      string   `json:"id"`
	Objects []Object `json:"objects"`
}

// Object is one STIX object as decoded from JSON.
type Object map[string]any

// Type returns the STIX type discriminator.
func (o Object) Type() string { return o.String("type") }

// ID returns the bundle-internal STIX id.
func (o Object) ID() string { return o.String("id") }

// Name returns the display name, or "Unknown" when the object has none.
func (o Object) Name() string {
	if name := o.String("name"); name != "" {
		return name
	}
	return constants.UnknownNodeName
}

// String returns a string field or "".
func (o Object) String(key string) string {
	switch v := o[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns a boolean field, false when absent.
func (o Object) Bool(key string) bool {
	b, _ := o[key].(bool)
	return b
}

// Strings returns a list-of-strings field, skipping non-string items.
func (o Object) Strings(key string) []string {
	switch v := o[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// maps returns a list-of-objects field.
func (o Object) maps(key string) []Object {
	list, _ := o[key].([]any)
	out := make([]Object, 0, len(list))
	for _, item := range list {
		switch m := item.(type) {
		case map[string]any:
			out = append(out, Object(m))
		case Object:
			out = append(out, m)
		}
	}
	return out
}

// Inactive reports whether the object is revoked or deprecated.
func (o Object) Inactive() bool {
	return o.Bool("revoked") || o.Bool("x_mitre_deprecated")
}

// ExternalReference returns the ATT&CK id (e.g. T1566) and page URL of the
// object. When no reference comes from an ATT&CK source the STIX id is used
// and the URL is empty.
func (o Object) ExternalReference() (id, url string) {
	for _, ref := range o.maps("external_references") {
		if attackSources[ref.String("source_name")] {
			if extID := ref.String("external_id"); extID != "" {
				return extID, ref.String("url")
			}
		}
	}
	return o.ID(), ""
}

// killChainPhases returns the ATT&CK phase names of a technique.
func (o Object) killChainPhases() []string {
	var phases []string
	for _, phase := range o.maps("kill_chain_phases") {
		if attackSources[phase.String("kill_chain_name")] {
			if name := phase.String("phase_name"); name != "" {
				phases = append(phases, name)
			}
		}
	}
	return phases
}

// phaseTitle turns a phase short name such as "command-and-control" into
// "Command And Control".
func phaseTitle(phase string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(phase, "-", " "))
}

// stixLabel maps the type prefix of a STIX id ("intrusion-set--...") to the
// node label objects of that type are stored under.
func stixLabel(stixID string) (string, bool) {
	prefix, _, ok := strings.Cut(stixID, "--")
	if !ok {
		return "", false
	}
	label, ok := nodeLabels[prefix]
	return label, ok
}
