package usecase

import (
	"OboGraphLoader/internal/domain"
	"OboGraphLoader/internal/logging"
)

// DefaultObsoleteMarker flags a definition whose term must not be imported.
const DefaultObsoleteMarker = "obsolete"

// ObsolescenceFilter drops terms whose definition carries the obsolescence marker.
type ObsolescenceFilter struct {
	marker string
	log    *logging.Logger
}

// NewObsolescenceFilter builds a filter; an empty marker falls back to DefaultObsoleteMarker.
func NewObsolescenceFilter(marker string, log *logging.Logger) *ObsolescenceFilter {
	if marker == "" {
		marker = DefaultObsoleteMarker
	}
	return &ObsolescenceFilter{marker: marker, log: log}
}

// Pass reports whether the term may be persisted.
func (f *ObsolescenceFilter) Pass(term domain.Term) bool {
	if term.IsObsolete(f.marker) {
		f.log.Debug("dropping obsolete term", "term_id", term.ID)
		return false
	}
	return true
}
