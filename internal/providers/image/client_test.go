package image

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptvault/internal/domain"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Options{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model", Size: "256x256"})
	require.NoError(t, err)
	return client
}

func TestGenerateSendsRequest(t *testing.T) {
	var captured generationRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"b64_json":"` + base64.StdEncoding.EncodeToString(pngHeader) + `"}]}`))
	})

	payload, err := client.Generate(context.Background(), "  a red fox in snow  ")
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngHeader), payload)
	assert.Equal(t, "a red fox in snow", captured.Prompt)
	assert.Equal(t, "test-model", captured.Model)
	assert.Equal(t, "256x256", captured.Size)
	assert.Equal(t, 1, captured.N)
	assert.Equal(t, "b64_json", captured.ResponseFormat)
}

func TestGenerateStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
		kind   domain.ErrorKind
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, want: domain.ErrUpstreamRateLimited, kind: domain.KindUpstreamRateLimited},
		{name: "quota", status: http.StatusPaymentRequired, want: domain.ErrUpstreamQuotaExhausted, kind: domain.KindUpstreamQuotaExhausted},
		{name: "server error", status: http.StatusInternalServerError, want: domain.ErrUpstream, kind: domain.KindUpstream},
		{name: "bad request", status: http.StatusBadRequest, want: domain.ErrUpstream, kind: domain.KindUpstream},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","code":"x"}}`))
			})

			_, err := client.Generate(context.Background(), "prompt text")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.kind, domain.Classify(err))

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tc.status, se.StatusCode)
			assert.Equal(t, "nope", se.Message)
		})
	}
}

func TestGenerateStatusErrorRawBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := client.Generate(context.Background(), "prompt text")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "slow down", se.Message)
	assert.True(t, domain.IsCritical(err))
}

func TestGenerateDownloadsHostedResult(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/images/generations", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"url":"` + srvURL + `/files/out.png"}]}`))
	})
	mux.HandleFunc("/files/out.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngHeader)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	client, err := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	payload, err := client.Generate(context.Background(), "prompt text")
	require.NoError(t, err)

	decoded, err := DecodePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, "image/png", decoded.MIME)
	assert.Equal(t, pngHeader, decoded.Data)
}

func TestGenerateEmptyResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	_, err := client.Generate(context.Background(), "prompt text")
	assert.ErrorIs(t, err, domain.ErrDecode)
}

func TestGenerateTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, err := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "prompt text")
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.False(t, domain.IsCritical(err))
}

func TestGenerateCanceledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be sent")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, "prompt text")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateSyntheticWithoutKey(t *testing.T) {
	client, err := NewClient(Options{Size: "64x32"})
	require.NoError(t, err)
	require.False(t, client.HasCredentials())

	first, err := client.Generate(context.Background(), "a lighthouse at dusk")
	require.NoError(t, err)
	second, err := client.Generate(context.Background(), "a lighthouse at dusk")
	require.NoError(t, err)
	other, err := client.Generate(context.Background(), "a forest at dawn")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)

	decoded, err := DecodePayload(first)
	require.NoError(t, err)
	assert.Equal(t, "image/png", decoded.MIME)
	assert.Equal(t, pngHeader, decoded.Data[:len(pngHeader)])
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	client, err := NewClient(Options{})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestParseSize(t *testing.T) {
	w, h := parseSize("1328*1328")
	assert.Equal(t, 1328, w)
	assert.Equal(t, 1328, h)

	w, h = parseSize("garbage")
	assert.Equal(t, 1024, w)
	assert.Equal(t, 1024, h)
}
