package parser

import (
	"strconv"
	"strings"

	"OboGraphLoader/internal/domain"
)

const (
	// DefaultIDPrefix marks the start of a Gene Ontology identifier.
	DefaultIDPrefix = "GO:"

	pubmedMarker = "PMID"
	// digits start after "PMID:"
	pubmedDigitsOffset = len(pubmedMarker) + 1
	// target id is the prefix followed by seven digits
	targetIDLength = 10
	// " ! " separates the target id from its description
	targetDescriptionGap = 3
)

// TermDecoder turns the lines of one term stanza into a domain.Term.
// It is stateless and safe for concurrent use.
type TermDecoder struct {
	idPrefix string
}

// NewTermDecoder builds a decoder for identifiers starting with idPrefix.
func NewTermDecoder(idPrefix string) *TermDecoder {
	if idPrefix == "" {
		idPrefix = DefaultIDPrefix
	}
	return &TermDecoder{idPrefix: idPrefix}
}

// Decode extracts a term from lines. Unknown tags are ignored and malformed
// fields are left at their zero value; validity is judged by the caller.
func (d *TermDecoder) Decode(lines []string) domain.Term {
	var term domain.Term

	for _, line := range lines {
		switch firstWord(line) {
		case "id":
			if idx := strings.Index(line, d.idPrefix); idx >= 0 {
				term.ID = strings.TrimSpace(line[idx:])
			}
		case "name":
			term.Name = valueAfterLabel(line, "name:")
		case "namespace":
			term.Namespace = valueAfterLabel(line, "namespace:")
		case "def":
			term.Definition = quotedText(line)
		case "synonym":
			term.Synonyms = append(term.Synonyms, decodeSynonym(line))
		case "is_a", "intersection_of", "relationship":
			term.Relationships = append(term.Relationships, d.decodeRelationship(line))
		case "xref":
			term.CrossReferences = append(term.CrossReferences, decodeXref(line))
		}
	}

	term.PublicationRefs = PublicationIDs(lines)
	return term
}

// PublicationIDs collects every PubMed id cited anywhere in lines, deduplicated.
func PublicationIDs(lines []string) []int {
	seen := map[int]struct{}{}
	for _, line := range lines {
		text := line
		for {
			idx := strings.Index(text, pubmedMarker)
			if idx < 0 {
				break
			}
			if id, ok := leadingNumber(text[min(idx+pubmedDigitsOffset, len(text)):]); ok {
				seen[id] = struct{}{}
			}
			text = text[idx+len(pubmedMarker):]
		}
	}
	return domain.NewPublicationSet(seen)
}

func (d *TermDecoder) decodeRelationship(line string) domain.Relationship {
	rel := domain.Relationship{Type: firstWord(line)}

	start := strings.Index(line, d.idPrefix)
	if start < 0 {
		return rel
	}

	end := start + targetIDLength
	if end > len(line) {
		end = len(line)
	}
	rel.TargetID = strings.TrimSpace(line[start:end])

	if colon := strings.Index(line, ":"); colon >= 0 && colon < start {
		rel.Qualifier = strings.TrimSpace(line[colon+1 : start])
	}

	if descStart := start + targetIDLength + targetDescriptionGap; descStart < len(line) {
		rel.Description = strings.TrimSpace(line[descStart:])
	}
	return rel
}

func decodeSynonym(line string) domain.Synonym {
	syn := domain.Synonym{Text: quotedText(line)}

	last := strings.LastIndex(line, `"`)
	if last < 0 || last == strings.Index(line, `"`) {
		return syn
	}
	rest := strings.TrimLeft(line[last+1:], " ")
	if sp := strings.Index(rest, " "); sp >= 0 {
		rest = rest[:sp]
	}
	syn.Type = rest
	return syn
}

func decodeXref(line string) domain.Xref {
	var xref domain.Xref

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return xref
	}
	parts := strings.SplitN(fields[1], ":", 2)
	xref.Source = parts[0]
	if len(parts) == 2 {
		xref.ID = parts[1]
	}
	xref.Description = quotedText(line)
	return xref
}

// firstWord returns the leading whitespace-delimited token with colons removed.
func firstWord(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return strings.ReplaceAll(fields[0], ":", "")
}

func valueAfterLabel(line, label string) string {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, label) {
		return ""
	}
	return strings.TrimSpace(trimmed[len(label):])
}

// quotedText returns the text between the first and last double quote.
func quotedText(line string) string {
	first := strings.Index(line, `"`)
	last := strings.LastIndex(line, `"`)
	if first < 0 || last <= first {
		return ""
	}
	return line[first+1 : last]
}

func leadingNumber(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
