package enrichclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptvault/internal/domain"
	"promptvault/internal/enrich"
	"promptvault/internal/sse"
)

// streamServer serves one scripted event stream per request.
func streamServer(t *testing.T, script func(w *sse.Writer, raw http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/prompts/enrich", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		stream, err := sse.NewWriter(w)
		if !assert.NoError(t, err) {
			return
		}
		script(stream, w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func waitDone(t *testing.T, c *Consumer) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not finish")
	}
}

func TestConsumerCompletes(t *testing.T) {
	srv := streamServer(t, func(w *sse.Writer, _ http.ResponseWriter, _ *http.Request) {
		_ = w.Send(enrich.Event{Type: enrich.EventSuccess, PromptID: "p1", PromptTitle: "One", ImageURL: "u1", Current: 1, Total: 3})
		_ = w.Send(enrich.Event{Type: enrich.EventError, PromptID: "p2", PromptTitle: "Two", Error: "boom", ErrorKind: domain.KindUpstream, Current: 2, Total: 3})
		_ = w.Send(enrich.Event{Type: enrich.EventSuccess, PromptID: "p3", PromptTitle: "Three", ImageURL: "u3", Current: 3, Total: 3})
		_ = w.Send(enrich.Event{Type: enrich.EventComplete, Generated: 2, Failed: 1, Total: 3})
	})

	var completions atomic.Int32
	var final Snapshot
	c := New(Options{BaseURL: srv.URL, Token: "secret", OnComplete: func(s Snapshot) {
		completions.Add(1)
		final = s
	}})

	require.NoError(t, c.Start(context.Background()))
	waitDone(t, c)

	assert.Equal(t, StateCompleted, c.State())
	assert.Equal(t, int32(1), completions.Load())
	assert.Equal(t, StateCompleted, final.State)
	assert.Equal(t, 2, final.Generated)
	assert.Equal(t, 1, final.Failed)
	assert.Equal(t, 3, final.Current)
	assert.Equal(t, 3, final.Total)

	snap := c.Snapshot()
	require.Len(t, snap.Errors, 1)
	assert.Equal(t, enrich.Failure{PromptID: "p2", Title: "Two", Kind: domain.KindUpstream, Message: "boom"}, snap.Errors[0])
	assert.Equal(t, "Three", snap.CurrentPrompt)
}

func TestConsumerCompletionCallbackRunsOnce(t *testing.T) {
	srv := streamServer(t, func(w *sse.Writer, _ http.ResponseWriter, _ *http.Request) {
		_ = w.Send(enrich.Event{Type: enrich.EventComplete, Generated: 1, Total: 1})
		_ = w.Send(enrich.Event{Type: enrich.EventComplete, Generated: 1, Total: 1})
	})
	var completions atomic.Int32
	c := New(Options{BaseURL: srv.URL, Token: "secret", OnComplete: func(Snapshot) { completions.Add(1) }})

	require.NoError(t, c.Start(context.Background()))
	waitDone(t, c)
	assert.Equal(t, int32(1), completions.Load())

	assert.ErrorIs(t, c.Start(context.Background()), ErrInvalidState)
}

func TestConsumerNothingPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"message":"all prompts already have previews","total":0}`))
	}))
	t.Cleanup(srv.Close)

	var completions atomic.Int32
	c := New(Options{BaseURL: srv.URL, OnComplete: func(Snapshot) { completions.Add(1) }})

	require.NoError(t, c.Start(context.Background()))
	waitDone(t, c)

	snap := c.Snapshot()
	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, 0, snap.Total)
	assert.Equal(t, "all prompts already have previews", snap.Message)
	assert.Equal(t, int32(1), completions.Load())
}

func TestConsumerCriticalNotice(t *testing.T) {
	for _, kind := range []domain.ErrorKind{domain.KindUpstreamQuotaExhausted, domain.KindUpstreamRateLimited} {
		t.Run(string(kind), func(t *testing.T) {
			srv := streamServer(t, func(w *sse.Writer, _ http.ResponseWriter, _ *http.Request) {
				_ = w.Send(enrich.Event{Type: enrich.EventSuccess, PromptID: "p1", Current: 1, Total: 5})
				_ = w.Send(enrich.Event{Type: enrich.EventCritical, Error: "stop", ErrorKind: kind, Generated: 1, Total: 5})
			})
			notices := make(chan Notice, 2)
			var completions atomic.Int32
			c := New(Options{
				BaseURL:    srv.URL,
				Token:      "secret",
				OnNotice:   func(n Notice) { notices <- n },
				OnComplete: func(Snapshot) { completions.Add(1) },
			})

			require.NoError(t, c.Start(context.Background()))
			waitDone(t, c)

			assert.Equal(t, StateErrored, c.State())
			assert.Zero(t, completions.Load())
			require.Len(t, notices, 1)
			n := <-notices
			assert.Equal(t, Notice{Kind: kind, Message: "stop", Generated: 1, Total: 5}, n)
			assert.Equal(t, "stop", c.Snapshot().Fatal)
		})
	}
}

func TestConsumerOtherCriticalHasNoNotice(t *testing.T) {
	srv := streamServer(t, func(w *sse.Writer, _ http.ResponseWriter, _ *http.Request) {
		_ = w.Send(enrich.Event{Type: enrich.EventCritical, Error: "odd", ErrorKind: domain.KindUpstream, Total: 2})
	})
	var notices atomic.Int32
	c := New(Options{BaseURL: srv.URL, Token: "secret", OnNotice: func(Notice) { notices.Add(1) }})

	require.NoError(t, c.Start(context.Background()))
	waitDone(t, c)
	assert.Equal(t, StateErrored, c.State())
	assert.Zero(t, notices.Load())
}

func TestConsumerSkipsMalformedFrames(t *testing.T) {
	srv := streamServer(t, func(w *sse.Writer, raw http.ResponseWriter, _ *http.Request) {
		_, _ = raw.Write([]byte("data: {not json\n\n"))
		_, _ = raw.Write([]byte("data: {\"type\":\"mystery\"}\n\n"))
		_ = w.Send(enrich.Event{Type: enrich.EventComplete, Total: 0})
	})
	c := New(Options{BaseURL: srv.URL, Token: "secret"})

	require.NoError(t, c.Start(context.Background()))
	waitDone(t, c)

	snap := c.Snapshot()
	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, 2, snap.Malformed)
}

func TestConsumerStreamEndsEarly(t *testing.T) {
	srv := streamServer(t, func(w *sse.Writer, _ http.ResponseWriter, _ *http.Request) {
		_ = w.Send(enrich.Event{Type: enrich.EventSuccess, PromptID: "p1", Current: 1, Total: 2})
	})
	c := New(Options{BaseURL: srv.URL, Token: "secret"})

	require.NoError(t, c.Start(context.Background()))
	waitDone(t, c)

	snap := c.Snapshot()
	assert.Equal(t, StateErrored, snap.State)
	assert.Equal(t, 1, snap.Generated)
	assert.Contains(t, snap.Fatal, "terminal event")
}

func TestConsumerRejectedRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)
	c := New(Options{BaseURL: srv.URL})

	err := c.Start(context.Background())
	assert.ErrorIs(t, err, ErrStream)
	assert.Equal(t, StateErrored, c.State())
}

func TestConsumerPauseFreezesSnapshot(t *testing.T) {
	proceed := make(chan struct{})
	finish := make(chan struct{})
	srv := streamServer(t, func(w *sse.Writer, _ http.ResponseWriter, _ *http.Request) {
		_ = w.Send(enrich.Event{Type: enrich.EventSuccess, PromptID: "p1", Current: 1, Total: 3})
		<-proceed
		_ = w.Send(enrich.Event{Type: enrich.EventSuccess, PromptID: "p2", Current: 2, Total: 3})
		<-finish
		_ = w.Send(enrich.Event{Type: enrich.EventComplete, Generated: 2, Failed: 0, Total: 3})
	})

	applied := make(chan Snapshot, 4)
	c := New(Options{BaseURL: srv.URL, Token: "secret", OnProgress: func(s Snapshot) { applied <- s }})
	require.NoError(t, c.Start(context.Background()))

	first := <-applied
	assert.Equal(t, 1, first.Generated)

	require.NoError(t, c.Pause())
	assert.ErrorIs(t, c.Pause(), ErrInvalidState)
	close(proceed)
	second := <-applied
	assert.Equal(t, 2, second.Generated)

	frozen := c.Snapshot()
	assert.Equal(t, StatePaused, frozen.State)
	assert.Equal(t, 1, frozen.Generated)

	require.NoError(t, c.Resume())
	live := c.Snapshot()
	assert.Equal(t, StateRunning, live.State)
	assert.Equal(t, 2, live.Generated)

	close(finish)
	waitDone(t, c)
	assert.Equal(t, StateCompleted, c.State())
}

func TestConsumerCancelDiscardsProgress(t *testing.T) {
	serverDone := make(chan struct{})
	srv := streamServer(t, func(w *sse.Writer, _ http.ResponseWriter, r *http.Request) {
		defer close(serverDone)
		_ = w.Send(enrich.Event{Type: enrich.EventSuccess, PromptID: "p1", Current: 1, Total: 3})
		<-r.Context().Done()
	})

	applied := make(chan Snapshot, 1)
	var completions atomic.Int32
	c := New(Options{
		BaseURL:    srv.URL,
		Token:      "secret",
		OnProgress: func(s Snapshot) { applied <- s },
		OnComplete: func(Snapshot) { completions.Add(1) },
	})
	require.NoError(t, c.Start(context.Background()))
	<-applied

	c.Cancel()
	assert.Equal(t, Snapshot{State: StateIdle}, c.Snapshot())
	waitDone(t, c)

	select {
	case <-serverDone:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not observe the disconnect")
	}
	assert.Equal(t, StateIdle, c.State())
	assert.Zero(t, completions.Load())

	assert.ErrorIs(t, c.Resume(), ErrInvalidState)
}
