package credentials

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"promptvault/internal/sqlinline"
)

type stubExecutor struct {
	token string
	err   error
	exec  struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return stubRow{token: s.token, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestImageAPIKey(t *testing.T) {
	store := NewStore(&stubExecutor{token: " sk-image "})
	key, err := store.ImageAPIKey(context.Background())
	if err != nil {
		t.Fatalf("ImageAPIKey error: %v", err)
	}
	if key != "sk-image" {
		t.Fatalf("expected sk-image, got %q", key)
	}
}

func TestImageAPIKey_NoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	key, err := store.ImageAPIKey(context.Background())
	if err != nil {
		t.Fatalf("ImageAPIKey error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
}

func TestImageAPIKey_Error(t *testing.T) {
	boom := errors.New("connection reset")
	store := NewStore(&stubExecutor{err: boom})
	if _, err := store.ImageAPIKey(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestSetImageAPIKey(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.SetImageAPIKey(context.Background(), " secret ", "https://api.example.com/v1", ""); err != nil {
		t.Fatalf("SetImageAPIKey error: %v", err)
	}
	if exec.exec.query != sqlinline.QUpsertIntegrationToken {
		t.Fatalf("unexpected query %q", exec.exec.query)
	}
	if len(exec.exec.args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(exec.exec.args))
	}
	if v, ok := exec.exec.args[0].(string); !ok || v != ProviderImage {
		t.Fatalf("expected provider argument, got %T %v", exec.exec.args[0], exec.exec.args[0])
	}
	if v, ok := exec.exec.args[1].(string); !ok || v != "secret" {
		t.Fatalf("expected secret argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
	}
	raw, ok := exec.exec.args[2].([]byte)
	if !ok {
		t.Fatalf("expected properties bytes, got %T", exec.exec.args[2])
	}
	var props map[string]string
	if err := json.Unmarshal(raw, &props); err != nil {
		t.Fatalf("properties are not json: %v", err)
	}
	if props["base_url"] != "https://api.example.com/v1" {
		t.Fatalf("unexpected properties %v", props)
	}
	if _, ok := props["model"]; ok {
		t.Fatalf("empty model should be omitted: %v", props)
	}
}

func TestSetImageAPIKeyEmpty(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.SetImageAPIKey(context.Background(), " ", "", ""); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
}

func TestSetImageAPIKeyExecError(t *testing.T) {
	store := NewStore(&stubExecutor{err: errors.New("read only")})
	err := store.SetImageAPIKey(context.Background(), "secret", "", "")
	if err == nil || !strings.Contains(err.Error(), "store image token") {
		t.Fatalf("expected wrapped exec error, got %v", err)
	}
}
