// Package enrichclient consumes the enrichment event stream and keeps a
// progress view with pause and cancel controls that only affect the client.
package enrichclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"promptvault/internal/domain"
	"promptvault/internal/enrich"
	"promptvault/internal/infra"
	"promptvault/internal/sse"
)

// State is the consumer lifecycle position.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateErrored   State = "errored"
)

var (
	// ErrInvalidState is returned when a control is used from the wrong state.
	ErrInvalidState = errors.New("enrichclient: invalid state for operation")
	// ErrStream marks transport failures of the event stream.
	ErrStream = errors.New("enrichclient: stream failed")
)

const enrichPath = "/v1/prompts/enrich"

// Snapshot is a copy of the consumer's progress.
type Snapshot struct {
	State         State
	Generated     int
	Failed        int
	Total         int
	Current       int
	CurrentPrompt string
	Errors        []enrich.Failure
	Fatal         string
	FatalKind     domain.ErrorKind
	Malformed     int
	Message       string
}

// Notice is a durable, user-actionable message for job-fatal upstream
// conditions.
type Notice struct {
	Kind      domain.ErrorKind
	Message   string
	Generated int
	Failed    int
	Total     int
}

// Options configures a Consumer.
type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Logger     *infra.Logger
	OnComplete func(Snapshot)
	OnNotice   func(Notice)
	OnProgress func(Snapshot)
}

// Consumer drives one enrichment stream at a time.
type Consumer struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
	onComplete func(Snapshot)
	onNotice   func(Notice)
	onProgress func(Snapshot)

	mu       sync.Mutex
	state    State
	live     Snapshot
	frozen   *Snapshot
	run      int
	finished bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// New constructs an idle consumer.
func New(opts Options) *Consumer {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := zerolog.New(io.Discard)
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "enrichclient").Logger()
	}
	done := make(chan struct{})
	close(done)
	return &Consumer{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
		httpClient: httpClient,
		logger:     logger,
		onComplete: opts.OnComplete,
		onNotice:   opts.OnNotice,
		onProgress: opts.OnProgress,
		state:      StateIdle,
		done:       done,
	}
}

// Start opens the stream. It is only valid from Idle. A "nothing pending"
// answer completes immediately with zero totals.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidState, c.state)
	}
	c.run++
	run := c.run
	runCtx, cancel := context.WithCancel(ctx)
	c.state = StateRunning
	c.live = Snapshot{}
	c.frozen = nil
	c.finished = false
	c.cancel = cancel
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	resp, err := c.open(runCtx)
	if err != nil {
		cancel()
		c.fail(run, err)
		close(done)
		return err
	}

	if isJSON(resp.Header.Get("Content-Type")) {
		defer close(done)
		defer cancel()
		defer resp.Body.Close()
		var body struct {
			Message string `json:"message"`
			Total   int    `json:"total"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			err = fmt.Errorf("%w: %w: %v", ErrStream, domain.ErrTransportParse, err)
			c.fail(run, err)
			return err
		}
		c.apply(run, enrich.Event{Type: enrich.EventComplete, Total: body.Total}, body.Message)
		return nil
	}

	go func() {
		defer close(done)
		defer cancel()
		c.consume(run, resp.Body)
	}()
	return nil
}

// Done is closed when the current stream has ended.
func (c *Consumer) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Pause freezes the snapshot. Events are still consumed.
func (c *Consumer) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return fmt.Errorf("%w: pause from %s", ErrInvalidState, c.state)
	}
	c.state = StatePaused
	frozen := c.snapshotLocked()
	c.frozen = &frozen
	return nil
}

// Resume unfreezes the snapshot.
func (c *Consumer) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePaused {
		return fmt.Errorf("%w: resume from %s", ErrInvalidState, c.state)
	}
	c.state = StateRunning
	c.frozen = nil
	return nil
}

// Cancel closes the local stream and discards progress. The server job is
// not affected.
func (c *Consumer) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.run++
	c.state = StateIdle
	c.live = Snapshot{}
	c.frozen = nil
}

// Snapshot returns the progress view; while paused it is the view captured
// at pause time.
func (c *Consumer) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen != nil {
		return copySnapshot(*c.frozen)
	}
	return c.snapshotLocked()
}

// State returns the current lifecycle state.
func (c *Consumer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Consumer) open(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+enrichPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrStream, err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrStream, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return resp, nil
}

// consume is the single dispatch loop of a run.
func (c *Consumer) consume(run int, body io.ReadCloser) {
	defer body.Close()

	reader := sse.NewReader(body)
	for {
		frame, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("%w: stream ended before a terminal event", ErrStream)
			} else {
				err = fmt.Errorf("%w: %w", ErrStream, err)
			}
			c.fail(run, err)
			return
		}

		var ev enrich.Event
		if err := json.Unmarshal(frame, &ev); err != nil || !knownType(ev.Type) {
			if err == nil {
				err = fmt.Errorf("unknown event type %q", ev.Type)
			}
			c.malformed(run, fmt.Errorf("%w: %v", domain.ErrTransportParse, err))
			continue
		}

		if !c.apply(run, ev, "") || ev.Terminal() {
			return
		}
	}
}

// apply folds one event into the live view. It reports false when the run
// is no longer current.
func (c *Consumer) apply(run int, ev enrich.Event, message string) bool {
	var (
		notify   func()
		progress Snapshot
	)

	c.mu.Lock()
	if run != c.run || c.finished {
		c.mu.Unlock()
		return false
	}
	switch ev.Type {
	case enrich.EventSuccess:
		c.live.Generated++
		c.live.Current = ev.Current
		c.live.Total = ev.Total
		c.live.CurrentPrompt = ev.PromptTitle
	case enrich.EventError:
		c.live.Failed++
		c.live.Current = ev.Current
		c.live.Total = ev.Total
		c.live.CurrentPrompt = ev.PromptTitle
		c.live.Errors = append(c.live.Errors, enrich.Failure{
			PromptID: ev.PromptID,
			Title:    ev.PromptTitle,
			Kind:     ev.ErrorKind,
			Message:  ev.Error,
		})
	case enrich.EventCritical:
		c.setTotalsLocked(ev)
		c.live.Fatal = ev.Error
		c.live.FatalKind = ev.ErrorKind
		c.state = StateErrored
		c.finished = true
		c.frozen = nil
		if ev.ErrorKind.Critical() && c.onNotice != nil {
			n := Notice{Kind: ev.ErrorKind, Message: ev.Error, Generated: ev.Generated, Failed: ev.Failed, Total: ev.Total}
			cb := c.onNotice
			notify = func() { cb(n) }
		}
	case enrich.EventComplete:
		c.setTotalsLocked(ev)
		c.live.Message = message
		c.state = StateCompleted
		c.finished = true
		c.frozen = nil
		if c.onComplete != nil {
			snap := c.snapshotLocked()
			cb := c.onComplete
			notify = func() { cb(snap) }
		}
	}
	progress = c.snapshotLocked()
	c.mu.Unlock()

	if c.onProgress != nil {
		c.onProgress(progress)
	}
	if notify != nil {
		notify()
	}
	if ev.Type == enrich.EventError {
		c.logger.Debug().Str("prompt_id", ev.PromptID).Str("kind", string(ev.ErrorKind)).Msg("prompt enrichment failed")
	}
	return true
}

func (c *Consumer) fail(run int, err error) {
	c.mu.Lock()
	if run != c.run || c.finished {
		c.mu.Unlock()
		return
	}
	c.state = StateErrored
	c.finished = true
	c.frozen = nil
	c.live.Fatal = err.Error()
	if errors.Is(err, domain.ErrTransportParse) {
		c.live.FatalKind = domain.KindTransportParse
	}
	c.mu.Unlock()
	c.logger.Warn().Err(err).Msg("enrichment stream failed")
}

func (c *Consumer) malformed(run int, err error) {
	c.mu.Lock()
	if run == c.run {
		c.live.Malformed++
	}
	c.mu.Unlock()
	c.logger.Warn().Err(err).Msg("skipping malformed event")
}

func (c *Consumer) setTotalsLocked(ev enrich.Event) {
	c.live.Generated = ev.Generated
	c.live.Failed = ev.Failed
	c.live.Total = ev.Total
	c.live.Current = ev.Generated + ev.Failed
}

func (c *Consumer) snapshotLocked() Snapshot {
	snap := copySnapshot(c.live)
	snap.State = c.state
	return snap
}

func copySnapshot(s Snapshot) Snapshot {
	s.Errors = slices.Clone(s.Errors)
	return s
}

func knownType(t enrich.EventType) bool {
	switch t {
	case enrich.EventSuccess, enrich.EventError, enrich.EventCritical, enrich.EventComplete:
		return true
	default:
		return false
	}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}
