package ingest

import (
	"html"
	"regexp"
	"strings"
)

var vttTag = regexp.MustCompile(`<[^>]*>`)

// vttText joins the cue text of a WebVTT document with spaces. Header, NOTE,
// STYLE and REGION blocks are skipped, inline timing and styling tags are
// removed, and a line repeating the previous one is dropped, since
// auto-generated captions roll each line into the next cue.
func vttText(doc string) string {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")

	var parts []string
	last := ""
	for _, block := range strings.Split(doc, "\n\n") {
		lines := strings.Split(strings.Trim(block, "\n"), "\n")
		timing := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timing = i
				break
			}
		}
		if timing < 0 {
			continue
		}

		for _, line := range lines[timing+1:] {
			cue := normalizeSpace(html.UnescapeString(vttTag.ReplaceAllString(line, "")))
			if cue == "" || cue == last {
				continue
			}
			parts = append(parts, cue)
			last = cue
		}
	}
	return strings.Join(parts, " ")
}
