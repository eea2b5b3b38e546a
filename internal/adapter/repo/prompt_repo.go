package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"promptvault/internal/domain"
	"promptvault/internal/infra"
	"promptvault/internal/sqlinline"
)

// PromptRepositoryPG implements domain.PromptRepository on PostgreSQL through
// the marker-checked SQL runner.
type PromptRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewPromptRepository constructs a PostgreSQL prompt repository.
func NewPromptRepository(sql infra.SQLExecutor) *PromptRepositoryPG {
	return &PromptRepositoryPG{sql: sql}
}

// EnsureSchema creates the prompt and integration token tables when missing.
func (r *PromptRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QEnsurePromptSchema); err != nil {
		return fmt.Errorf("ensure prompt schema: %w", err)
	}
	return nil
}

// CreateMany inserts prompts in order and returns them with ids and
// timestamps assigned.
func (r *PromptRepositoryPG) CreateMany(ctx context.Context, prompts []domain.Prompt) ([]domain.Prompt, error) {
	if err := validateAll(prompts); err != nil {
		return nil, err
	}
	created := make([]domain.Prompt, 0, len(prompts))
	for _, p := range prompts {
		rec := normalizeForInsert(p)
		row := r.sql.QueryRow(ctx, sqlinline.QInsertPrompt,
			rec.ID,
			rec.Title,
			rec.Category,
			derefString(rec.Subcategory),
			rec.Content,
			rec.Tags,
			rec.StyleTags,
			rec.SubjectTags,
			rec.Number,
			string(rec.Visibility),
		)
		if err := row.Scan(&rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert prompt: %w", err)
		}
		created = append(created, rec)
	}
	return created, nil
}

// GetByID loads one prompt. Unknown ids return domain.ErrNotFound.
func (r *PromptRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Prompt, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	p, err := scanPrompt(r.sql.QueryRow(ctx, sqlinline.QSelectPromptByID, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select prompt: %w", err)
	}
	return &p, nil
}

// ListMissingPreview returns prompts without a preview image, newest first.
func (r *PromptRepositoryPG) ListMissingPreview(ctx context.Context) ([]domain.Prompt, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListPromptsMissingPreview)
	if err != nil {
		return nil, fmt.Errorf("list prompts missing preview: %w", err)
	}
	defer rows.Close()

	var prompts []domain.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return prompts, nil
}

// CountMissingPreview returns how many prompts still need a preview image.
func (r *PromptRepositoryPG) CountMissingPreview(ctx context.Context) (int, error) {
	var n int
	if err := r.sql.QueryRow(ctx, sqlinline.QCountPromptsMissingPreview).Scan(&n); err != nil {
		return 0, fmt.Errorf("count prompts missing preview: %w", err)
	}
	return n, nil
}

// UpdatePreviewImage records the preview URL for a prompt. Failures wrap
// domain.ErrPersistUpdate.
func (r *PromptRepositoryPG) UpdatePreviewImage(ctx context.Context, id, imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return fmt.Errorf("%w: image url is empty", domain.ErrPersistUpdate)
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdatePromptPreview, id, imageURL)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistUpdate, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: prompt %s: %w", domain.ErrPersistUpdate, id, domain.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrompt(row rowScanner) (domain.Prompt, error) {
	var (
		p          domain.Prompt
		visibility string
	)
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Category,
		&p.Subcategory,
		&p.Content,
		&p.Tags,
		&p.StyleTags,
		&p.SubjectTags,
		&p.Number,
		&p.PreviewImageURL,
		&p.UsageCount,
		&p.IsFavorite,
		&visibility,
		&p.CreatedAt,
	)
	if err != nil {
		return domain.Prompt{}, err
	}
	p.Visibility = domain.Visibility(visibility)
	return p, nil
}

var _ domain.PromptRepository = (*PromptRepositoryPG)(nil)
