package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"promptvault/internal/domain"
	"promptvault/internal/sse"
)

type enrichIdleResponse struct {
	Message string `json:"message"`
	Total   int    `json:"total"`
}

// PromptsEnrich runs one enrichment job and streams its events. When nothing
// is pending it answers with a plain JSON message instead.
func (a *App) PromptsEnrich(w http.ResponseWriter, r *http.Request) {
	logger := a.requestLogger(r)
	if _, ok := w.(http.Flusher); !ok {
		a.error(w, http.StatusInternalServerError, "internal", sse.ErrStreamingUnsupported.Error())
		return
	}

	ctx := context.WithoutCancel(r.Context())
	if a.Config != nil && a.Config.EnrichCancelOnDisconnect {
		ctx = r.Context()
	}
	events, err := a.Enricher.Start(ctx)
	switch {
	case errors.Is(err, domain.ErrNothingPending):
		a.json(w, http.StatusOK, enrichIdleResponse{Message: "All prompts already have preview images", Total: 0})
		return
	case err != nil:
		logger.Error().Err(err).Msg("enrichment job failed to start")
		a.error(w, http.StatusInternalServerError, "internal", "failed to start enrichment")
		return
	}

	// The stream outlives the server write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.Debug().Err(err).Msg("could not lift write deadline")
	}

	stream, err := sse.NewWriter(w)
	if err != nil {
		logger.Error().Err(err).Msg("event stream unavailable")
	}
	for ev := range events {
		if stream == nil {
			logger.Info().Str("type", string(ev.Type)).Str("prompt_id", ev.PromptID).Msg("event not delivered")
			continue
		}
		if err := stream.Send(ev); err != nil {
			logger.Warn().Err(err).Msg("client stream closed; job continues")
			stream = nil
		}
	}
}
