package domain

import "context"

// PromptRepository persists prompt records.
type PromptRepository interface {
	CreateMany(ctx context.Context, prompts []Prompt) ([]Prompt, error)
	GetByID(ctx context.Context, id string) (*Prompt, error)
	// ListMissingPreview returns prompts without a preview image, newest first.
	ListMissingPreview(ctx context.Context) ([]Prompt, error)
	CountMissingPreview(ctx context.Context) (int, error)
	UpdatePreviewImage(ctx context.Context, id, imageURL string) error
}
