// Package promptimport turns pasted text into draft prompt records.
//
// The pipeline is Split -> Extract -> Assemble. Every step is a pure
// function over strings so the whole import can be previewed without touching
// storage.
package promptimport

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"promptvault/internal/domain"
)

// Segment is one candidate prompt cut out of a raw import blob.
type Segment struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// StrategyName identifies the split rule that produced a segmentation.
type StrategyName string

const (
	StrategyNumbered   StrategyName = "numbered"
	StrategyHeaders    StrategyName = "headers"
	StrategyBracketed  StrategyName = "bracketed"
	StrategyParagraphs StrategyName = "paragraphs"
	StrategyKeywords   StrategyName = "keywords"
	StrategyWhole      StrategyName = "whole"
)

var (
	numberedMarker = regexp.MustCompile(`(?i)\b\d+\.\s*prompt\s*:`)
	headerMarker   = regexp.MustCompile(`(?m)^[ \t]*#{1,5}[ \t]+`)
	bracketMarker  = regexp.MustCompile(`\*\*\[[^\]\n]+\]\*\*`)
	blankLine      = regexp.MustCompile(`\n[ \t]*\n`)
	keywordMarker  = regexp.MustCompile(`(?mi)^[ \t]*(?:prompt|scene|image|description|subject|concept)[ \t]*:`)
)

// strategy is a split rule plus the minimum length a chunk needs to count.
// keepMarked lets a short chunk through when it carries the marker and a
// non-empty body.
type strategy struct {
	name       StrategyName
	minLen     int
	keepMarked bool
	split      func(text string) []chunk
}

// chunk is a split result before filtering. body is the text after the
// strategy marker; it is empty for strategies without markers.
type chunk struct {
	text   string
	marked bool
	body   string
}

// strategies are evaluated in this order; ties go to the earlier entry.
var strategies = []strategy{
	{name: StrategyNumbered, minLen: 20, keepMarked: true, split: markerSplitter(numberedMarker)},
	{name: StrategyHeaders, minLen: 20, split: markerSplitter(headerMarker)},
	{name: StrategyBracketed, minLen: 20, split: markerSplitter(bracketMarker)},
	{name: StrategyParagraphs, minLen: 50, split: paragraphSplit},
	{name: StrategyKeywords, minLen: 20, split: markerSplitter(keywordMarker)},
}

// Result is the winning segmentation of a blob.
type Result struct {
	Strategy StrategyName `json:"strategy"`
	Segments []Segment    `json:"segments"`
}

// Split cuts text into candidate prompts. Non-empty input always yields at
// least one segment; blank input yields none.
func Split(text string) Result {
	whole := strings.TrimSpace(text)
	if whole == "" {
		return Result{Strategy: StrategyWhole}
	}

	var (
		best      StrategyName
		bestCount int
		bestTexts []string
	)
	for _, s := range strategies {
		texts := survivors(s, whole)
		if len(texts) > bestCount {
			best, bestCount, bestTexts = s.name, len(texts), texts
		}
	}
	if bestCount <= 1 {
		return Result{Strategy: StrategyWhole, Segments: []Segment{{Text: whole, Position: 0}}}
	}

	segments := make([]Segment, len(bestTexts))
	for i, t := range bestTexts {
		segments[i] = Segment{Text: t, Position: i}
	}
	return Result{Strategy: best, Segments: segments}
}

// survivors runs one strategy and applies its length filter. A chunk that
// could not be saved as prompt content never survives.
func survivors(s strategy, text string) []string {
	var out []string
	for _, c := range s.split(text) {
		trimmed := strings.TrimSpace(c.text)
		if domain.ValidateContent(trimmed) != nil {
			continue
		}
		long := utf8.RuneCountInString(trimmed) >= s.minLen
		if long || (s.keepMarked && c.marked && strings.TrimSpace(c.body) != "") {
			out = append(out, trimmed)
		}
	}
	return out
}

// markerSplitter cuts text at the start of every marker match. Text before
// the first marker is kept as the lead-in of the first chunk.
func markerSplitter(marker *regexp.Regexp) func(string) []chunk {
	return func(text string) []chunk {
		locs := marker.FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			return []chunk{{text: text}}
		}
		chunks := make([]chunk, 0, len(locs))
		for i, loc := range locs {
			start := loc[0]
			if i == 0 {
				start = 0
			}
			end := len(text)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			chunks = append(chunks, chunk{
				text:   text[start:end],
				marked: true,
				body:   text[loc[1]:end],
			})
		}
		return chunks
	}
}

func paragraphSplit(text string) []chunk {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	parts := blankLine.Split(normalized, -1)
	chunks := make([]chunk, len(parts))
	for i, p := range parts {
		chunks[i] = chunk{text: p}
	}
	return chunks
}
