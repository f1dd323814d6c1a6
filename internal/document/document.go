// Package document turns a raw study document into the cleaned text and
// content hash the graph loader consumes. Input is plain text; pages are
// delimited by form feed characters, as produced by most text exporters.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	pageNumberLine = regexp.MustCompile(`^\d+$`)
	sentenceEnd    = regexp.MustCompile(`[.!?:;]$`)
)

// Read extracts and cleans the document at path and returns the cleaned
// text together with its content hash.
func Read(path string) (text, contentHash string, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("cannot read document %s: %w", path, err)
	}
	text = Clean(splitPages(string(raw)))
	return text, Hash(text), nil
}

// Hash returns the SHA-256 digest of the text's UTF-8 bytes as lowercase
// hexadecimal. This is the sole change-detection signal for the graph.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func splitPages(raw string) []string {
	var pages []string
	for _, p := range strings.Split(raw, "\f") {
		if strings.TrimSpace(p) != "" {
			pages = append(pages, p)
		}
	}
	return pages
}

// Clean strips page numbers and repeated header/footer lines, then
// merges lines broken mid-sentence.
func Clean(pages []string) string {
	if len(pages) == 0 {
		return ""
	}

	pageLines := make([][]string, len(pages))
	for i, page := range pages {
		pageLines[i] = strings.Split(page, "\n")
	}

	repeated := findRepeatedLines(pageLines)

	var cleaned []string
	for _, lines := range pageLines {
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if pageNumberLine.MatchString(line) {
				continue
			}
			if repeated[line] {
				continue
			}
			cleaned = append(cleaned, line)
		}
	}

	return mergeBrokenLines(cleaned)
}

// findRepeatedLines flags lines appearing on at least half the pages
// (minimum two), which are almost always headers or footers.
func findRepeatedLines(pageLines [][]string) map[string]bool {
	repeated := make(map[string]bool)
	if len(pageLines) < 2 {
		return repeated
	}

	counts := make(map[string]int)
	for _, lines := range pageLines {
		seen := make(map[string]bool)
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" || seen[line] {
				continue
			}
			seen[line] = true
			counts[line]++
		}
	}

	threshold := len(pageLines) / 2
	if threshold < 2 {
		threshold = 2
	}
	for line, count := range counts {
		if count >= threshold {
			repeated[line] = true
		}
	}
	return repeated
}

// mergeBrokenLines joins consecutive lines until one ends with
// sentence-ending punctuation.
func mergeBrokenLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}

	var merged []string
	current := lines[0]
	for _, line := range lines[1:] {
		if sentenceEnd.MatchString(current) {
			merged = append(merged, current)
			current = line
		} else {
			current += " " + line
		}
	}
	merged = append(merged, current)

	return strings.Join(merged, "\n")
}
