package storage

import (
	"fmt"
	"maps"
	"regexp"
	"sort"

	"OboGraphLoader/internal/domain"
)

var identifierExpr = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ontologyLabels are removed by a reload; Publication nodes survive so that
// enriched metadata is not fetched again.
var ontologyLabels = []string{
	domain.LabelTerm,
	domain.LabelSynonymCollection,
	domain.LabelSynonym,
}

func checkIdentifier(kind, value string) error {
	if !identifierExpr.MatchString(value) {
		return fmt.Errorf("%s %q: %w", kind, value, domain.ErrInvalidIdentifier)
	}
	return nil
}

func checkRef(ref domain.NodeRef) error {
	if err := checkIdentifier("label", ref.Label); err != nil {
		return err
	}
	if ref.Key == "" {
		return fmt.Errorf("%s node: empty key", ref.Label)
	}
	return nil
}

func mergeAttributes(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	maps.Copy(out, base)
	maps.Copy(out, override)
	return out
}

type pendingPublication struct {
	key         string
	attemptedAt string
}

// pendingFromAttributes reports whether a publication still lacks a title.
func pendingFromAttributes(key string, attrs map[string]any) (pendingPublication, bool) {
	if title, _ := attrs["title"].(string); title != "" {
		return pendingPublication{}, false
	}
	at, _ := attrs[domain.AttrEnrichAttemptedAt].(string)
	return pendingPublication{key: key, attemptedAt: at}, true
}

// orderPending puts never-attempted publications first, then the ones tried
// longest ago, and truncates to limit.
func orderPending(pending []pendingPublication, limit int) []string {
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].attemptedAt != pending[j].attemptedAt {
			return pending[i].attemptedAt < pending[j].attemptedAt
		}
		return pending[i].key < pending[j].key
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	ids := make([]string, len(pending))
	for i, p := range pending {
		ids[i] = p.key
	}
	return ids
}
