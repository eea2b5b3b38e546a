package repo

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"promptvault/internal/domain"
	"promptvault/internal/infra"
	"promptvault/internal/sqlinline"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// sqliteTimeLayout has a fixed width so text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// PromptRepositorySQLite implements domain.PromptRepository on an embedded
// SQLite database. It backs development setups and tests.
type PromptRepositorySQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path and applies migrations.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*PromptRepositorySQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// An in-memory database lives per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	repo := &PromptRepositorySQLite{db: db, now: time.Now}
	if err := repo.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the underlying database.
func (r *PromptRepositorySQLite) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *PromptRepositorySQLite) applyMigrations(ctx context.Context) error {
	entries, err := sqliteMigrations.ReadDir("migrations/sqlite")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, sqlinline.QSQLiteEnsureMigrations); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	for _, name := range names {
		version := strings.TrimSuffix(name, ".sql")
		var count int
		if err := tx.QueryRowContext(ctx, sqlinline.QSQLiteMigrationApplied, version).Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		body, err := sqliteMigrations.ReadFile("migrations/sqlite/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, sqlinline.QSQLiteRecordMigration, version); err != nil {
			return fmt.Errorf("record migration %s: %w", version, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

// CreateMany inserts all prompts in one transaction.
func (r *PromptRepositorySQLite) CreateMany(ctx context.Context, prompts []domain.Prompt) ([]domain.Prompt, error) {
	if err := validateAll(prompts); err != nil {
		return nil, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	created := make([]domain.Prompt, 0, len(prompts))
	for _, p := range prompts {
		rec := normalizeForInsert(p)
		rec.CreatedAt = r.now().UTC()
		tags, styleTags, subjectTags, err := encodeTagLists(rec)
		if err != nil {
			return nil, err
		}
		stamp := rec.CreatedAt.Format(sqliteTimeLayout)
		_, err = tx.ExecContext(ctx, sqlinline.QSQLiteInsertPrompt,
			rec.ID,
			rec.Title,
			rec.Category,
			nullableString(rec.Subcategory),
			rec.Content,
			tags,
			styleTags,
			subjectTags,
			nullableInt(rec.Number),
			string(rec.Visibility),
			stamp,
			stamp,
		)
		if err != nil {
			return nil, fmt.Errorf("insert prompt: %w", err)
		}
		created = append(created, rec)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}
	return created, nil
}

// GetByID loads one prompt. Unknown ids return domain.ErrNotFound.
func (r *PromptRepositorySQLite) GetByID(ctx context.Context, id string) (*domain.Prompt, error) {
	row := r.db.QueryRowContext(ctx, sqlinline.QSQLiteSelectPromptByID, id)
	p, err := scanSQLitePrompt(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select prompt: %w", err)
	}
	return &p, nil
}

// ListMissingPreview returns prompts without a preview image, newest first.
func (r *PromptRepositorySQLite) ListMissingPreview(ctx context.Context) ([]domain.Prompt, error) {
	rows, err := r.db.QueryContext(ctx, sqlinline.QSQLiteListPromptsMissingPreview)
	if err != nil {
		return nil, fmt.Errorf("list prompts missing preview: %w", err)
	}
	defer rows.Close()

	var prompts []domain.Prompt
	for rows.Next() {
		p, err := scanSQLitePrompt(rows)
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
func (r *PromptRepositorySQLite) CountMissingPreview(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, sqlinline.QSQLiteCountPromptsMissingPreview).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count prompts missing preview: %w", err)
	}
	return n, nil
}

// UpdatePreviewImage records the preview URL for a prompt. Failures wrap
// domain.ErrPersistUpdate.
func (r *PromptRepositorySQLite) UpdatePreviewImage(ctx context.Context, id, imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return fmt.Errorf("%w: image url is empty", domain.ErrPersistUpdate)
	}
	res, err := r.db.ExecContext(ctx, sqlinline.QSQLiteUpdatePromptPreview,
		imageURL, r.now().UTC().Format(sqliteTimeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistUpdate, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistUpdate, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: prompt %s: %w", domain.ErrPersistUpdate, id, domain.ErrNotFound)
	}
	return nil
}

func scanSQLitePrompt(row rowScanner) (domain.Prompt, error) {
	var (
		p                            domain.Prompt
		subcategory, preview         sql.NullString
		number                       sql.NullInt64
		tags, styleTags, subjectTags string
		visibility, createdAt        string
		isFavorite                   int
	)
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Category,
		&subcategory,
		&p.Content,
		&tags,
		&styleTags,
		&subjectTags,
		&number,
		&preview,
		&p.UsageCount,
		&isFavorite,
		&visibility,
		&createdAt,
	)
	if err != nil {
		return domain.Prompt{}, err
	}
	if subcategory.Valid {
		p.Subcategory = &subcategory.String
	}
	if preview.Valid {
		p.PreviewImageURL = &preview.String
	}
	if number.Valid {
		n := int(number.Int64)
		p.Number = &n
	}
	for _, pair := range []struct {
		raw string
		dst *[]string
	}{{tags, &p.Tags}, {styleTags, &p.StyleTags}, {subjectTags, &p.SubjectTags}} {
		if err := json.Unmarshal([]byte(pair.raw), pair.dst); err != nil {
			return domain.Prompt{}, fmt.Errorf("decode tags: %w", err)
		}
	}
	p.IsFavorite = isFavorite != 0
	p.Visibility = domain.Visibility(visibility)
	if p.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return domain.Prompt{}, fmt.Errorf("parse created_at: %w", err)
	}
	return p, nil
}

func encodeTagLists(p domain.Prompt) (string, string, string, error) {
	out := make([]string, 3)
	for i, list := range [][]string{p.Tags, p.StyleTags, p.SubjectTags} {
		raw, err := json.Marshal(list)
		if err != nil {
			return "", "", "", fmt.Errorf("encode tags: %w", err)
		}
		out[i] = string(raw)
	}
	return out[0], out[1], out[2], nil
}

func nullableString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func nullableInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

var _ domain.PromptRepository = (*PromptRepositorySQLite)(nil)
