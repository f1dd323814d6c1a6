// Package extract pulls recurring terminology out of cleaned document
// text. Extraction is deterministic: identical input yields an identical
// concept list.
package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Concept is one accepted term: the original surface form plus its
// normalized form. Two surface forms may share a normalized form; the
// graph merges those into one concept with alias tracking.
type Concept struct {
	Term       string
	Normalized string
}

var (
	// Capitalized multi-word phrases: "Machine Learning", "Fast Fourier Transform".
	capitalizedPhrase = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`)

	// Lowercase technical phrases of two or three words, each at least
	// three letters: "gradient descent", "depth first search".
	lowercasePhrase = regexp.MustCompile(`\b[a-z]{3,}(?:\s+[a-z]{3,}){1,2}\b`)

	whitespaceRun = regexp.MustCompile(`\s+`)
)

// startStopwords reject phrases led by a function word ("the algorithm").
var startStopwords = map[string]bool{
	"the": true, "this": true, "that": true, "any": true,
	"which": true, "whose": true, "for": true, "with": true,
}

// endStopwords reject phrases trailing off into one ("function of").
var endStopwords = map[string]bool{
	"the": true, "will": true, "are": true, "was": true,
	"were": true, "with": true, "into": true, "of": true,
}

// Extract returns the deduplicated, frequency-filtered concepts found in
// text, ordered by normalized term ascending.
func Extract(text string, minFrequency int) []Concept {
	candidates := extractCandidates(text)

	counts := make(map[Concept]int)
	var order []Concept
	for _, c := range candidates {
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}

	var concepts []Concept
	for _, c := range order {
		if !passesFilters(c.Normalized, counts[c], minFrequency) {
			continue
		}
		concepts = append(concepts, c)
	}

	sort.SliceStable(concepts, func(i, j int) bool {
		return concepts[i].Normalized < concepts[j].Normalized
	})
	return concepts
}

// extractCandidates runs both scans over the text and concatenates the
// results without deduplication; counting happens per (surface,
// normalized) pair afterwards.
func extractCandidates(text string) []Concept {
	var candidates []Concept

	for _, t := range capitalizedPhrase.FindAllString(text, -1) {
		candidates = append(candidates, Concept{Term: t, Normalized: Normalize(t)})
	}
	for _, t := range lowercasePhrase.FindAllString(text, -1) {
		candidates = append(candidates, Concept{Term: t, Normalized: Normalize(t)})
	}

	return candidates
}

// passesFilters applies the frequency and stopword rules to one counted
// (surface, normalized) group. Word count is taken from the normalized
// form. The second frequency clause is intentionally kept even though
// the first subsumes it for reachable word counts; the observable
// filtering behavior is frozen.
func passesFilters(normalized string, count, minFrequency int) bool {
	words := strings.Fields(normalized)

	if len(words) == 1 && count < minFrequency {
		return false
	}
	if count < minFrequency && len(words) < 2 {
		return false
	}

	if startStopwords[words[0]] {
		return false
	}
	if endStopwords[words[len(words)-1]] {
		return false
	}
	return true
}

// Normalize lowercases a term, collapses internal whitespace runs to a
// single space, and trims the ends. Normalizing an already-normalized
// term returns it unchanged.
func Normalize(term string) string {
	term = strings.ToLower(term)
	term = whitespaceRun.ReplaceAllString(term, " ")
	return strings.TrimSpace(term)
}
