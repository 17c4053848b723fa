package graph

import "strings"

// ============================================================================
// Result Deduplication
// ============================================================================

// pathSet remembers name sequences already returned. Two paths through
// different nodes that share display names count as the same path.
type pathSet map[string]struct{}

func newPathSet() pathSet {
	return make(pathSet)
}

// add records p and reports whether it was new.
func (s pathSet) add(p Path) bool {
	key := strings.Join(p, "\x1f")
	if _, ok := s[key]; ok {
		return false
	}
	s[key] = struct{}{}
	return true
}

// fragmentList is an ordered, capped list of fragments unique by exact text.
type fragmentList struct {
	limit int
	seen  map[string]struct{}
	items []Fragment
}

func newFragmentList(limit int) *fragmentList {
	return &fragmentList{
		limit: limit,
		seen:  make(map[string]struct{}),
		items: make([]Fragment, 0, limit),
	}
}

// add appends f unless its text was already added or the list is full.
func (l *fragmentList) add(f Fragment) {
	if l.full() {
		return
	}
	if _, ok := l.seen[f.Text]; ok {
		return
	}
	l.seen[f.Text] = struct{}{}
	l.items = append(l.items, f)
}

func (l *fragmentList) full() bool {
	return len(l.items) >= l.limit
}

// dedupeKeywords drops repeated keywords, keeping first occurrences in order.
func dedupeKeywords(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
