package promptimport

import (
	"regexp"
	"strings"

	"promptvault/internal/domain"
)

const (
	titleWords       = 6
	titleMaxRunes    = 50
	punctuationMarks = ".,;:!?"
)

var (
	emphasisChars  = strings.NewReplacer("*", "", "_", "", "~", "", "`", "")
	sentenceEnd    = regexp.MustCompile(`[.!?](?:\s|$)`)
	detailWordExpr = regexp.MustCompile(`(?i)\b(detailed|intricate|highly|ultra|texture|textured|lighting|composition|atmosphere|background|foreground|reflections)\b`)
)

// GenerateTitle builds a short title from the first sentence of content.
// Import markers (category brackets, "N. Prompt:", headings) are not part of
// the title.
func GenerateTitle(content string) string {
	text := stripLeadMarkers(content)
	text = strings.TrimSpace(emphasisChars.Replace(text))
	if loc := sentenceEnd.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	words := strings.Fields(text)
	if len(words) > titleWords {
		words = words[:titleWords]
	}
	title := strings.Join(words, " ")
	if r := []rune(title); len(r) > titleMaxRunes {
		title = string(r[:titleMaxRunes]) + "..."
	}
	return title
}

// ClassifyComplexity scores content by length, punctuation and detail words.
func ClassifyComplexity(content string) domain.Complexity {
	score := 0

	switch words := len(strings.Fields(content)); {
	case words > 100:
		score += 2
	case words > 50:
		score++
	}

	punct := 0
	for _, r := range content {
		if strings.ContainsRune(punctuationMarks, r) {
			punct++
		}
	}
	switch {
	case punct > 10:
		score += 2
	case punct > 5:
		score++
	}

	score += len(detailWordExpr.FindAllStringIndex(content, -1))

	switch {
	case score >= 5:
		return domain.ComplexityComplex
	case score >= 2:
		return domain.ComplexityMedium
	default:
		return domain.ComplexitySimple
	}
}

// stripLeadMarkers removes the import markers a segment usually opens with.
func stripLeadMarkers(content string) string {
	text := categoryBracket.ReplaceAllString(content, "")
	text = numberedMarker.ReplaceAllString(text, "")
	text = headerMarker.ReplaceAllString(text, "")
	return keywordMarker.ReplaceAllString(text, "")
}
