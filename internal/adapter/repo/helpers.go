package repo

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"promptvault/internal/domain"
)

func validateAll(prompts []domain.Prompt) error {
	for i, p := range prompts {
		if err := domain.ValidateContent(p.Content); err != nil {
			return fmt.Errorf("prompt %d: %w", i+1, err)
		}
		if strings.TrimSpace(p.Title) == "" {
			return fmt.Errorf("prompt %d: %w: title is empty", i+1, domain.ErrValidation)
		}
	}
	return nil
}

// normalizeForInsert assigns an id and fills the defaults a new record needs.
func normalizeForInsert(p domain.Prompt) domain.Prompt {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if strings.TrimSpace(p.Category) == "" {
		p.Category = domain.DefaultCategory
	}
	if p.Visibility == "" {
		p.Visibility = domain.VisibilityPrivate
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.StyleTags == nil {
		p.StyleTags = []string{}
	}
	if p.SubjectTags == nil {
		p.SubjectTags = []string{}
	}
	p.PreviewImageURL = nil
	return p
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
