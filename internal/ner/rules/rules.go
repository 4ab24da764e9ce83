// Package rules is a deterministic entity recognizer built from a YAML
// gazetteer of known names plus patterns for laws, agencies, dates,
// section references and defined terms.
package rules

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"justify/internal/ner"
	"justify/internal/textutil"
)

//go:embed default_gazetteer.yaml
var defaultGazetteer []byte

var _ ner.Recognizer = (*Recognizer)(nil)

// Gazetteer lists names recognised verbatim.
type Gazetteer struct {
	Laws          []string `yaml:"laws"`
	Organizations []string `yaml:"organizations"`
	Places        []string `yaml:"places"`
}

const (
	capWord = `[A-Z][A-Za-z'’\-]*`
	// connectors allowed inside a multi-word proper name
	joiner = `(?:\s+(?:of|and|for|on|&)\s+|\s+)`
)

var (
	sectionRe = regexp.MustCompile(`(?i)\b(?:Section|Sec\.?)\s*\d+[A-Za-z]?(?:\(\w+\))*`)
	lawRe     = regexp.MustCompile(`\b` + capWord + `(?:` + joiner + capWord + `){0,6}\s+(?:Act|Code|Regulations?|Rules|Ordinance|Constitution|Statute|Directive)(?:,?\s+(?:of\s+)?\d{4})?\b`)
	orgRe     = regexp.MustCompile(`\b` + capWord + `(?:` + joiner + capWord + `){0,6}\s+(?:Agency|Department|Commission|Court|Board|Ministry|Authority|Council|Office|Bureau|Service|Administration|Tribunal|Committee|Parliament|Congress)\b`)
	dateRe    = regexp.MustCompile(`\b(?:(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},\s+\d{4}|\d{1,2}\s+(?:January|February|March|April|May|June|July|August|September|October|November|December),?\s+\d{4}|(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{4}|\d{1,2}/\d{1,2}/\d{2,4}|(?:1[6-9]|20)\d{2})\b`)
	definedRe = regexp.MustCompile(`["“]([^"”\n]{2,60})["”]\s+(?:means|shall mean|includes|refers to)\b`)
	phraseRe  = regexp.MustCompile(`\b` + capWord + `(?:\s+` + capWord + `)*`)
	leadingRe = regexp.MustCompile(`^(?i:the|a|an|this|that|such|any|every)\s+`)
)

type matcher struct {
	re    *regexp.Regexp
	label string
	pos   string
	group int
}

// Recognizer applies gazetteer matchers first, then patterns. Spans already
// claimed by an earlier matcher are skipped.
type Recognizer struct {
	matchers []matcher
}

// New builds a recognizer from the gazetteer at path. An empty path uses
// the bundled gazetteer. A missing file is reported as os.ErrNotExist.
func New(path string) (*Recognizer, error) {
	data := defaultGazetteer
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read gazetteer: %w", err)
		}
		data = b
	}
	var g Gazetteer
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse gazetteer %s: %w", path, err)
	}
	return NewFromGazetteer(g), nil
}

// NewFromGazetteer builds a recognizer from an in-memory gazetteer.
func NewFromGazetteer(g Gazetteer) *Recognizer {
	r := &Recognizer{}
	r.matchers = append(r.matchers, gazetteerMatchers(g)...)
	r.matchers = append(r.matchers,
		matcher{re: sectionRe, label: ner.LabelCardinal, pos: ner.POSNum},
		matcher{re: lawRe, label: ner.LabelLaw, pos: ner.POSProperNoun},
		matcher{re: orgRe, label: ner.LabelOrg, pos: ner.POSProperNoun},
		matcher{re: dateRe, label: ner.LabelDate, pos: ner.POSNum},
		matcher{re: definedRe, label: ner.LabelMisc, pos: ner.POSNoun, group: 1},
	)
	return r
}

// WriteDefaultGazetteer installs the bundled gazetteer at path.
func WriteDefaultGazetteer(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, defaultGazetteer, 0o644)
}

func (r *Recognizer) Name() string { return "rules" }

func (r *Recognizer) Recognize(ctx context.Context, text string) ([]ner.Entity, error) {
	type found struct {
		start, end int
		entity     ner.Entity
	}
	var spans []found
	claimed := func(start, end int) bool {
		for _, s := range spans {
			if start < s.end && s.start < end {
				return true
			}
		}
		return false
	}
	add := func(start, end int, label, pos string) {
		raw := text[start:end]
		if loc := leadingRe.FindStringIndex(raw); loc != nil {
			start += loc[1]
		}
		if start >= end || claimed(start, end) {
			return
		}
		spans = append(spans, found{start, end, ner.Entity{
			Text:    textutil.CollapseSpace(text[start:end]),
			Label:   label,
			HeadPOS: pos,
		}})
	}

	for _, m := range r.matchers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, loc := range m.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[2*m.group], loc[2*m.group+1]
			if start < 0 {
				continue
			}
			add(start, end, m.label, m.pos)
		}
	}

	// Remaining capitalised phrases are candidate concepts.
	for _, loc := range phraseRe.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		phrase := text[start:end]
		if loc := leadingRe.FindStringIndex(phrase); loc != nil {
			start += loc[1]
			phrase = text[start:end]
		}
		if phrase == "" || textutil.IsStopword(strings.ToLower(phrase)) {
			continue
		}
		if !strings.Contains(phrase, " ") && sentenceInitial(text, start) {
			continue
		}
		add(start, end, ner.LabelMisc, ner.POSProperNoun)
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	out := make([]ner.Entity, len(spans))
	for i, s := range spans {
		out[i] = s.entity
	}
	return out, nil
}

func gazetteerMatchers(g Gazetteer) []matcher {
	var out []matcher
	groups := []struct {
		names []string
		label string
	}{
		{g.Laws, ner.LabelLaw},
		{g.Organizations, ner.LabelOrg},
		{g.Places, ner.LabelGPE},
	}
	type entry struct {
		name  string
		label string
	}
	var entries []entry
	for _, grp := range groups {
		for _, n := range grp.names {
			n = strings.TrimSpace(n)
			if n == "" {
				continue
			}
			entries = append(entries, entry{n, grp.label})
		}
	}
	// Longest names first so "Clean Air Act Amendments" beats "Clean Air Act".
	sort.SliceStable(entries, func(i, j int) bool { return len(entries[i].name) > len(entries[j].name) })
	for _, e := range entries {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(e.name) + `\b`)
		out = append(out, matcher{re: re, label: e.label, pos: ner.POSProperNoun})
	}
	return out
}

// sentenceInitial reports whether the word at offset begins a sentence.
func sentenceInitial(text string, offset int) bool {
	prefix := strings.TrimRight(text[:offset], " \t\r\n\"'“(")
	if prefix == "" {
		return true
	}
	last := prefix[len(prefix)-1]
	return last == '.' || last == '!' || last == '?' || last == ':' || last == ';'
}
