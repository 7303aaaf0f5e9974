package domain

import (
	"sort"
	"strings"
)

// Term is one ontology entry decoded from a [Term] stanza.
type Term struct {
	ID              string
	Namespace       string
	Name            string
	Definition      string
	Synonyms        []Synonym
	Relationships   []Relationship
	CrossReferences []Xref
	PublicationRefs []int
}

// Synonym is an alternate label together with its scope (EXACT, NARROW, BROAD, RELATED).
type Synonym struct {
	Text string
	Type string
}

// Relationship is a typed, directed reference from a term to another term.
type Relationship struct {
	Type        string
	Qualifier   string
	TargetID    string
	Description string
}

// Xref points at the same concept in an external authority.
type Xref struct {
	Source      string
	ID          string
	Description string
}

// IsValid reports whether the term carries the fields required for persistence.
func (t Term) IsValid() bool {
	return !isBlank(t.ID) && !isBlank(t.Name) && !isBlank(t.Namespace)
}

// IsObsolete reports whether the definition contains marker in any letter case.
func (t Term) IsObsolete(marker string) bool {
	if marker == "" {
		return false
	}
	return strings.Contains(strings.ToLower(t.Definition), strings.ToLower(marker))
}

// SynonymID builds the deterministic key of the synonym at 1-based position ordinal.
func SynonymID(termID string, ordinal int) string {
	return termID + "#" + itoa(ordinal)
}

// NewPublicationSet returns the sorted, deduplicated publication ids.
func NewPublicationSet(ids map[int]struct{}) []int {
	if len(ids) == 0 {
		return nil
	}
	out := make([]int, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
