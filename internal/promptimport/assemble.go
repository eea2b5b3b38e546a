package promptimport

import (
	"fmt"

	"promptvault/internal/domain"
)

// ImportResult is the preview of one import.
type ImportResult struct {
	Strategy StrategyName   `json:"strategy"`
	Drafts   []domain.Draft `json:"drafts"`
}

// Import segments text and assembles a draft per segment.
func Import(text string) ImportResult {
	res := Split(text)
	return ImportResult{Strategy: res.Strategy, Drafts: Assemble(res.Segments)}
}

// Assemble turns segments into drafts, preserving order.
func Assemble(segments []Segment) []domain.Draft {
	drafts := make([]domain.Draft, 0, len(segments))
	for i, seg := range segments {
		drafts = append(drafts, AssembleOne(seg.Text, Extract(seg.Text), i))
	}
	return drafts
}

// AssembleOne builds the draft for a single segment at index.
func AssembleOne(content string, meta Metadata, index int) domain.Draft {
	category := meta.Category
	title := fmt.Sprintf("Prompt #%d", index+1)
	if category != "" {
		n := index + 1
		if meta.Number != nil {
			n = *meta.Number
		}
		title = fmt.Sprintf("%s #%d", category, n)
	} else {
		category = domain.DefaultCategory
	}

	return domain.Draft{
		Title:          title,
		Category:       category,
		Subcategory:    meta.Subcategory,
		Content:        content,
		Tags:           union(meta.StyleTags, meta.SubjectTags),
		StyleTags:      meta.StyleTags,
		SubjectTags:    meta.SubjectTags,
		TechnicalTags:  meta.TechnicalTags,
		Number:         meta.Number,
		Visibility:     domain.VisibilityPrivate,
		SuggestedTitle: GenerateTitle(content),
		Complexity:     ClassifyComplexity(content),
	}
}
