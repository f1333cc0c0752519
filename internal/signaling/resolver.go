package signaling

import (
	"sort"
	"strings"
	"unicode"
)

var honorifics = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "miss": {}, "mx": {},
	"dr": {}, "prof": {}, "professor": {}, "sir": {}, "madam": {}, "dame": {},
}

// NameEntry is one display name known to an index.
type NameEntry struct {
	ID   string
	Name string
}

// ResolveIndex is the read side the resolver needs: a primary key store, a
// case-insensitive alias index and the list of display names.
type ResolveIndex interface {
	HasID(id string) bool
	IDForAlias(alias string) (string, bool)
	Names() []NameEntry
}

// Resolve maps a free-form identifier to a canonical id. The ladder is tried in
// order and the first rung that yields a hit wins: exact canonical id, exact
// alias ignoring case, normalized display name equality, then normalized
// display name substring. Ties within a rung are broken by the lowest id.
func Resolve(identifier string, idx ResolveIndex) (string, bool) {
	if id, ok := ResolveExact(identifier, idx); ok {
		return id, true
	}
	return ResolveFuzzy(identifier, idx)
}

// ResolveExact runs the first three rungs of the ladder.
func ResolveExact(identifier string, idx ResolveIndex) (string, bool) {
	raw := strings.TrimSpace(identifier)
	if raw == "" {
		return "", false
	}
	if idx.HasID(raw) {
		return raw, true
	}
	if id, ok := idx.IDForAlias(strings.ToLower(raw)); ok {
		return id, true
	}

	query := NormalizeName(raw)
	if query == "" {
		return "", false
	}
	for _, n := range sortedNames(idx) {
		if NormalizeName(n.Name) == query {
			return n.ID, true
		}
	}
	return "", false
}

// ResolveFuzzy is the last rung: normalized display name substring.
func ResolveFuzzy(identifier string, idx ResolveIndex) (string, bool) {
	query := NormalizeName(strings.TrimSpace(identifier))
	if query == "" {
		return "", false
	}
	for _, n := range sortedNames(idx) {
		if strings.Contains(NormalizeName(n.Name), query) {
			return n.ID, true
		}
	}
	return "", false
}

func sortedNames(idx ResolveIndex) []NameEntry {
	names := idx.Names()
	sort.Slice(names, func(i, j int) bool { return names[i].ID < names[j].ID })
	return names
}

// NormalizeName lowercases, drops punctuation, collapses whitespace and strips
// leading honorifics such as "Dr." or "Mrs".
func NormalizeName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r), r == '-', r == '_':
			return ' '
		}
		return -1
	}, name)

	words := strings.Fields(cleaned)
	for len(words) > 1 {
		if _, ok := honorifics[words[0]]; !ok {
			break
		}
		words = words[1:]
	}
	return strings.Join(words, " ")
}
