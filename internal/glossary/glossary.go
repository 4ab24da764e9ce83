// Package glossary buckets recognised entities into fixed legal categories.
package glossary

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"go.uber.org/zap"

	"justify/internal/domain"
	"justify/internal/ner"
	"justify/internal/textutil"
)

// Category names, in display order.
const (
	ActsLaws    = "Acts/Laws"
	Authorities = "Authorities"
	Dates       = "Dates"
	Sections    = "Sections"
	Concepts    = "Concepts"
)

// Categories lists every category in display order.
var Categories = []string{ActsLaws, Authorities, Dates, Sections, Concepts}

const maxConceptWords = 4

var sectionRe = regexp.MustCompile(`(?i)^(Section|Sec\.?)\s*\d+`)

// Entry is the glossary of one source.
type Entry struct {
	Source string              `json:"source"`
	Terms  map[string][]string `json:"terms"`
}

// Empty reports whether no category holds a term.
func (e Entry) Empty() bool {
	for _, terms := range e.Terms {
		if len(terms) > 0 {
			return false
		}
	}
	return true
}

// Classify maps an entity to its category. Label rules are checked before
// the section pattern, so a DATE that reads like "Section 5" stays a date.
// ok is false for entities that belong to no category.
func Classify(e ner.Entity) (category string, ok bool) {
	text := textutil.CollapseSpace(e.Text)
	switch {
	case e.Label == ner.LabelLaw:
		return ActsLaws, true
	case e.Label == ner.LabelOrg || e.Label == ner.LabelGPE:
		return Authorities, true
	case e.Label == ner.LabelDate:
		return Dates, true
	case sectionRe.MatchString(text):
		return Sections, true
	case (e.HeadPOS == ner.POSProperNoun || e.HeadPOS == ner.POSNoun) && textutil.WordCount(text) <= maxConceptWords:
		return Concepts, true
	default:
		return "", false
	}
}

// Extractor builds glossary entries with an entity recognizer.
type Extractor struct {
	rec ner.Recognizer
	log *zap.Logger
}

func NewExtractor(rec ner.Recognizer, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{rec: rec, log: log.Named("glossary")}
}

// Extract returns one entry per distinct source, in order of first
// appearance. Every entry carries all five categories, possibly empty.
// Terms are deduplicated by trimmed, whitespace-collapsed, case-sensitive
// text and sorted.
func (x *Extractor) Extract(ctx context.Context, docs []domain.Document) ([]Entry, error) {
	var order []string
	sets := make(map[string]map[string]map[string]struct{})
	for _, doc := range docs {
		source := doc.Source
		if source == "" {
			source = "Unknown"
		}
		cats, seen := sets[source]
		if !seen {
			order = append(order, source)
			cats = newCategorySets()
			sets[source] = cats
		}
		ents, err := x.rec.Recognize(ctx, doc.Content)
		if err != nil {
			return nil, fmt.Errorf("recognize %s: %w", doc.Provenance(), err)
		}
		for _, e := range ents {
			term := textutil.CollapseSpace(e.Text)
			if term == "" {
				continue
			}
			cat, ok := Classify(e)
			if !ok {
				continue
			}
			cats[cat][term] = struct{}{}
		}
	}

	out := make([]Entry, 0, len(order))
	for _, source := range order {
		entry := Entry{Source: source, Terms: make(map[string][]string, len(Categories))}
		for _, cat := range Categories {
			terms := make([]string, 0, len(sets[source][cat]))
			for t := range sets[source][cat] {
				terms = append(terms, t)
			}
			sort.Strings(terms)
			entry.Terms[cat] = terms
		}
		x.log.Debug("glossary entry",
			zap.String("source", source),
			zap.Int("laws", len(entry.Terms[ActsLaws])),
			zap.Int("authorities", len(entry.Terms[Authorities])),
			zap.Int("dates", len(entry.Terms[Dates])),
			zap.Int("sections", len(entry.Terms[Sections])),
			zap.Int("concepts", len(entry.Terms[Concepts])),
		)
		out = append(out, entry)
	}
	return out, nil
}

func newCategorySets() map[string]map[string]struct{} {
	m := make(map[string]map[string]struct{}, len(Categories))
	for _, c := range Categories {
		m[c] = make(map[string]struct{})
	}
	return m
}
