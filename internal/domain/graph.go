package domain

import "strconv"

// Node labels used in the target graph.
const (
	LabelTerm              = "Term"
	LabelSynonymCollection = "SynonymCollection"
	LabelSynonym           = "Synonym"
	LabelPublication       = "Publication"
)

// Edge types linking a term to its sub-entities.
const (
	EdgeHasSynonymCollection = "HAS_SYNONYM_COLLECTION"
	EdgeHasSynonym           = "HAS_SYNONYM"
	EdgeHasPublication       = "HAS_PUBLICATION"
)

// AttrEnrichAttemptedAt records on a Publication node when the enrichment
// pass last tried and failed to fill it. Values are RFC 3339 UTC timestamps.
const AttrEnrichAttemptedAt = "enrich_attempted_at"

// NodeRef addresses a node by label and natural key.
type NodeRef struct {
	Label string
	Key   string
}

// TermRef addresses a Term node.
func TermRef(id string) NodeRef {
	return NodeRef{Label: LabelTerm, Key: id}
}

// PublicationRef addresses a Publication node.
func PublicationRef(pubID int) NodeRef {
	return NodeRef{Label: LabelPublication, Key: itoa(pubID)}
}

// Publication holds bibliographic metadata filled in by the enrichment pass.
type Publication struct {
	ID      string
	Title   string
	Journal string
	Date    string
	DOI     string
}

// Attributes returns the non-empty metadata fields as node attributes.
func (p Publication) Attributes() map[string]any {
	attrs := map[string]any{}
	if p.Title != "" {
		attrs["title"] = p.Title
	}
	if p.Journal != "" {
		attrs["journal"] = p.Journal
	}
	if p.Date != "" {
		attrs["published"] = p.Date
	}
	if p.DOI != "" {
		attrs["doi"] = p.DOI
	}
	return attrs
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
