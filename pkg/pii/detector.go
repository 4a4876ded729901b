package pii

import (
	"regexp"
	"sort"

	"github.com/orbitdesk/ticketrouter/pkg/models"
)

// patternRule pairs a regex with the PIIKind it identifies. Rules are tried
// in order and their matches merged, so the more specific card-number rule
// precedes the more general bare-digit national-id rule.
type patternRule struct {
	kind models.PIIKind
	re   *regexp.Regexp
}

// RegexDetector is a structural PII detector: no language model, just
// pattern matching for the handful of shapes that show up in support-ticket
// free text (phone numbers, emails, card numbers, national IDs).
type RegexDetector struct {
	rules []patternRule
}

// NewRegexDetector builds a detector with a default rule set covering
// e-mail addresses, phone numbers, 13-19 digit card numbers, and 9-12 digit
// national ID numbers.
func NewRegexDetector() *RegexDetector {
	return &RegexDetector{rules: []patternRule{
		{kind: models.PIIEmail, re: regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)},
		{kind: models.PIICard, re: regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)},
		{kind: models.PIIPhone, re: regexp.MustCompile(`\+?\d[\d ()-]{8,14}\d`)},
		{kind: models.PIINationalID, re: regexp.MustCompile(`\b\d{9,12}\b`)},
	}}
}

// Detect runs every rule over text and returns non-overlapping matches
// ordered by position. Later rules in the rule list never match a span
// already claimed by an earlier one.
func (d *RegexDetector) Detect(text string) []Match {
	var matches []Match
	claimed := make([]bool, len(text)+1)

	for _, rule := range d.rules {
		for _, loc := range rule.re.FindAllStringIndex(text, -1) {
			start, end := loc[0], loc[1]
			if spanClaimed(claimed, start, end) {
				continue
			}
			for i := start; i < end; i++ {
				claimed[i] = true
			}
			matches = append(matches, Match{Start: start, End: end, Kind: rule.kind, Value: text[start:end]})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Start < matches[j].Start })
	return matches
}

func spanClaimed(claimed []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}
