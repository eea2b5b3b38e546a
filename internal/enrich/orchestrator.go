// Package enrich generates preview images for prompts that lack one. A run
// scans the store once, works through fixed-size concurrent batches with a
// pause between them, and reports every outcome as an Event.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"promptvault/internal/domain"
	"promptvault/internal/infra"
	"promptvault/internal/providers/image"
)

const (
	DefaultBatchSize  = 5
	DefaultBatchDelay = 2000 * time.Millisecond
)

// PromptStore is the persistence the orchestrator needs.
type PromptStore interface {
	ListMissingPreview(ctx context.Context) ([]domain.Prompt, error)
	UpdatePreviewImage(ctx context.Context, id, imageURL string) error
}

// ImageGenerator turns prompt text into an encoded image payload.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// BlobStore keeps generated images.
type BlobStore interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
	Delete(ctx context.Context, name string) error
}

// Options tunes a run. Zero values select the defaults and a negative
// BatchDelay disables the pause between batches. CompensateOrphanedUploads
// deletes an uploaded image when recording it on the prompt fails; the orphan
// is logged either way.
type Options struct {
	BatchSize                 int
	BatchDelay                time.Duration
	CompensateOrphanedUploads bool
	Logger                    *infra.Logger
	Now                       func() time.Time
	Sleep                     func(ctx context.Context, d time.Duration) error
}

// Orchestrator runs enrichment jobs. It holds no per-job state, so one value
// serves any number of Start calls.
type Orchestrator struct {
	store      PromptStore
	images     ImageGenerator
	blobs      BlobStore
	batchSize  int
	batchDelay time.Duration
	compensate bool
	logger     zerolog.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// New wires an orchestrator.
func New(store PromptStore, images ImageGenerator, blobs BlobStore, opts Options) *Orchestrator {
	o := &Orchestrator{
		store:      store,
		images:     images,
		blobs:      blobs,
		batchSize:  opts.BatchSize,
		batchDelay: opts.BatchDelay,
		compensate: opts.CompensateOrphanedUploads,
		now:        opts.Now,
		sleep:      opts.Sleep,
	}
	if o.batchSize <= 0 {
		o.batchSize = DefaultBatchSize
	}
	if o.batchDelay < 0 {
		o.batchDelay = 0
	} else if o.batchDelay == 0 {
		o.batchDelay = DefaultBatchDelay
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.sleep == nil {
		o.sleep = sleepContext
	}
	if opts.Logger != nil {
		o.logger = opts.Logger.With().Str("component", "enrich").Logger()
	} else {
		o.logger = zerolog.New(io.Discard)
	}
	return o
}

// Start scans for prompts without a preview and begins a job. When nothing
// is pending it returns domain.ErrNothingPending and no channel. The channel
// is closed after the terminal event, or early when ctx ends.
func (o *Orchestrator) Start(ctx context.Context) (<-chan Event, error) {
	pending, err := o.store.ListMissingPreview(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan pending prompts: %w", err)
	}
	if len(pending) == 0 {
		return nil, domain.ErrNothingPending
	}

	job := o.logger.With().Str("job_id", uuid.NewString()).Logger()
	job.Info().
		Int("total", len(pending)).
		Int("batch_size", o.batchSize).
		Dur("batch_delay", o.batchDelay).
		Msg("enrichment job started")

	events := make(chan Event)
	go o.run(ctx, job, pending, events)
	return events, nil
}

func (o *Orchestrator) run(ctx context.Context, logger zerolog.Logger, pending []domain.Prompt, events chan<- Event) {
	defer close(events)

	progress := Progress{Total: len(pending)}
	batches := partition(pending, o.batchSize)
	for i, batch := range batches {
		if i > 0 {
			if err := o.sleep(ctx, o.batchDelay); err != nil {
				logger.Warn().Err(err).Int("batch", i+1).Msg("enrichment job stopped during batch delay")
				return
			}
		}
		logger.Debug().Int("batch", i+1).Int("of", len(batches)).Int("size", len(batch)).Msg("batch started")

		next, err := o.runBatch(ctx, logger, batch, progress, events)
		progress = next
		if err == nil {
			continue
		}
		var fatal *criticalError
		if errors.As(err, &fatal) {
			logger.Error().
				Err(fatal.err).
				Str("prompt_id", fatal.promptID).
				Int("generated", progress.Generated).
				Int("failed", progress.Failed).
				Int("abandoned", progress.Total-progress.Current()).
				Msg("enrichment job aborted")
			o.send(ctx, events, Event{
				Type:      EventCritical,
				Error:     fatal.err.Error(),
				ErrorKind: domain.Classify(fatal.err),
				Generated: progress.Generated,
				Failed:    progress.Failed,
				Total:     progress.Total,
			})
			return
		}
		logger.Warn().Err(err).Msg("enrichment job stopped")
		return
	}

	logger.Info().
		Int("generated", progress.Generated).
		Int("failed", progress.Failed).
		Int("total", progress.Total).
		Msg("enrichment job completed")
	o.send(ctx, events, Event{
		Type:      EventComplete,
		Generated: progress.Generated,
		Failed:    progress.Failed,
		Total:     progress.Total,
	})
}

type outcome struct {
	prompt   domain.Prompt
	imageURL string
	err      error
}

type criticalError struct {
	promptID string
	err      error
}

func (e *criticalError) Error() string { return e.err.Error() }
func (e *criticalError) Unwrap() error { return e.err }

// runBatch fans the batch out, folds every outcome into progress on this
// goroutine and returns once every call has settled. A critical outcome
// cancels the calls still in flight. Calls that still saved a preview are
// counted as generated without an event of their own; other late outcomes
// are dropped.
func (o *Orchestrator) runBatch(ctx context.Context, logger zerolog.Logger, batch []domain.Prompt, progress Progress, events chan<- Event) (Progress, error) {
	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make(chan outcome, len(batch))
	var g errgroup.Group
	g.SetLimit(o.batchSize)
	for _, p := range batch {
		g.Go(func() error {
			outcomes <- o.enrichOne(batchCtx, logger, p)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(outcomes)
	}()

	var stop error
	for out := range outcomes {
		if stop != nil {
			if out.err == nil {
				progress = progress.withSuccess()
				logger.Info().
					Str("prompt_id", out.prompt.ID).
					Str("image_url", out.imageURL).
					Msg("preview saved after job stop")
				continue
			}
			logger.Debug().
				Str("prompt_id", out.prompt.ID).
				AnErr("outcome", out.err).
				Msg("discarding outcome after job stop")
			continue
		}

		var ev Event
		switch {
		case out.err == nil:
			progress = progress.withSuccess()
			ev = Event{
				Type:        EventSuccess,
				PromptID:    out.prompt.ID,
				PromptTitle: out.prompt.Title,
				ImageURL:    out.imageURL,
			}
		case domain.IsCritical(out.err):
			stop = &criticalError{promptID: out.prompt.ID, err: out.err}
			cancel()
			continue
		default:
			kind := domain.Classify(out.err)
			progress = progress.withFailure(Failure{
				PromptID: out.prompt.ID,
				Title:    out.prompt.Title,
				Kind:     kind,
				Message:  out.err.Error(),
			})
			logger.Warn().Err(out.err).Str("prompt_id", out.prompt.ID).Str("kind", string(kind)).Msg("prompt enrichment failed")
			ev = Event{
				Type:        EventError,
				PromptID:    out.prompt.ID,
				PromptTitle: out.prompt.Title,
				Error:       out.err.Error(),
				ErrorKind:   kind,
			}
		}
		ev.Current = progress.Current()
		ev.Total = progress.Total
		if !o.send(ctx, events, ev) {
			stop = ctx.Err()
			cancel()
		}
	}
	return progress, stop
}

// enrichOne takes one prompt from content to persisted preview URL.
func (o *Orchestrator) enrichOne(ctx context.Context, logger zerolog.Logger, p domain.Prompt) outcome {
	res := outcome{prompt: p}
	if err := domain.ValidateContent(p.Content); err != nil {
		res.err = err
		return res
	}

	payload, err := o.images.Generate(ctx, p.Content)
	if err != nil {
		res.err = err
		return res
	}

	decoded, err := image.DecodePayload(payload)
	if err != nil {
		res.err = err
		return res
	}

	name := fmt.Sprintf("%s-%d%s", p.ID, o.now().UnixMilli(), image.Extension(decoded.MIME))
	url, err := o.blobs.Upload(ctx, name, decoded.Data)
	if err != nil {
		res.err = ensureKind(err, domain.ErrUpload)
		return res
	}

	if err := o.store.UpdatePreviewImage(ctx, p.ID, url); err != nil {
		res.err = ensureKind(err, domain.ErrPersistUpdate)
		o.handleOrphan(ctx, logger, p.ID, name, url)
		return res
	}

	res.imageURL = url
	return res
}

func (o *Orchestrator) handleOrphan(ctx context.Context, logger zerolog.Logger, promptID, name, url string) {
	entry := logger.Warn().Str("prompt_id", promptID).Str("blob", name).Str("url", url)
	if !o.compensate {
		entry.Msg("uploaded preview is orphaned")
		return
	}
	if err := o.blobs.Delete(context.WithoutCancel(ctx), name); err != nil {
		entry.AnErr("delete_error", err).Msg("uploaded preview is orphaned; compensating delete failed")
		return
	}
	entry.Msg("orphaned preview deleted")
}

// send delivers ev unless ctx ends first.
func (o *Orchestrator) send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func ensureKind(err, kind error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

func partition(prompts []domain.Prompt, size int) [][]domain.Prompt {
	batches := make([][]domain.Prompt, 0, (len(prompts)+size-1)/size)
	for start := 0; start < len(prompts); start += size {
		end := min(start+size, len(prompts))
		batches = append(batches, prompts[start:end])
	}
	return batches
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
