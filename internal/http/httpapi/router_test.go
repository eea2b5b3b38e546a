package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptvault/internal/adapter/repo"
	"promptvault/internal/enrich"
	"promptvault/internal/http/handlers"
	"promptvault/internal/infra"
	"promptvault/internal/middleware"
	"promptvault/internal/providers/image"
	"promptvault/internal/sse"
	"promptvault/internal/storage"
)

const testSecret = "router-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()

	store, err := repo.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	dir := t.TempDir()
	blobs, err := storage.NewFileStore(dir, "/static", "previews")
	require.NoError(t, err)

	logger := zerolog.Nop()
	images, err := image.NewClient(image.Options{Size: "32x32", Logger: &logger})
	require.NoError(t, err)

	cfg := &infra.Config{
		AppEnv:             "test",
		JWTSecret:          testSecret,
		StoragePath:        dir,
		RateLimitPerMin:    100,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}
	orchestrator := enrich.New(store, images, blobs, enrich.Options{BatchSize: 2, BatchDelay: -1, Logger: &logger})
	return NewRouter(handlers.NewApp(cfg, logger, store, orchestrator))
}

func authorized(t *testing.T, req *http.Request) *http.Request {
	t.Helper()
	token, err := middleware.SignJWT(testSecret, middleware.TokenClaims{
		Sub: "user-1",
		Exp: time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	router := newTestRouter(t)
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestPromptRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/v1/prompts/import", strings.NewReader(`{"text":"x"}`)),
		httptest.NewRequest(http.MethodPost, "/v1/prompts/enrich", nil),
		httptest.NewRequest(http.MethodGet, "/v1/prompts/pending", nil),
	} {
		rec := serve(router, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, req.URL.Path)
	}
}

func TestImportEnrichAndServePreview(t *testing.T) {
	router := newTestRouter(t)

	body := `{"text":"1. Prompt: A cinematic portrait of a lighthouse keeper at dusk\n2. Prompt: A watercolor landscape of terraced rice fields"}`
	rec := serve(router, authorized(t, httptest.NewRequest(http.MethodPost, "/v1/prompts/import?commit=true", strings.NewReader(body))))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(router, authorized(t, httptest.NewRequest(http.MethodGet, "/v1/prompts/pending", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pending":2}`, rec.Body.String())

	rec = serve(router, authorized(t, httptest.NewRequest(http.MethodPost, "/v1/prompts/enrich", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var events []enrich.Event
	reader := sse.NewReader(strings.NewReader(rec.Body.String()))
	for {
		frame, err := reader.Next()
		if err != nil {
			break
		}
		var ev enrich.Event
		require.NoError(t, json.Unmarshal(frame, &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 3)
	last := events[2]
	assert.Equal(t, enrich.EventComplete, last.Type)
	assert.Equal(t, 2, last.Generated)
	assert.Equal(t, 0, last.Failed)

	first := events[0]
	require.Equal(t, enrich.EventSuccess, first.Type)
	require.True(t, strings.HasPrefix(first.ImageURL, "/static/previews/"), first.ImageURL)

	rec = serve(router, httptest.NewRequest(http.MethodGet, first.ImageURL, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = serve(router, authorized(t, httptest.NewRequest(http.MethodPost, "/v1/prompts/enrich", nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"All prompts already have preview images","total":0}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/prompts/enrich", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := serve(router, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
