package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"promptvault/internal/domain"
	"promptvault/internal/promptimport"
)

const maxImportBytes = 1 << 20

type importRequest struct {
	Text string `json:"text"`
}

type importResponse struct {
	Strategy promptimport.StrategyName `json:"strategy"`
	Drafts   []domain.Draft            `json:"drafts"`
	Prompts  []domain.Prompt           `json:"prompts,omitempty"`
}

type pendingResponse struct {
	Pending int `json:"pending"`
}

// PromptsImport previews an import, or persists it with ?commit=true.
func (a *App) PromptsImport(w http.ResponseWriter, r *http.Request) {
	text, err := readImportText(w, r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if strings.TrimSpace(text) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "text is required")
		return
	}

	res := promptimport.Import(text)
	commit, _ := strconv.ParseBool(r.URL.Query().Get("commit"))
	if !commit {
		a.json(w, http.StatusOK, importResponse{Strategy: res.Strategy, Drafts: res.Drafts})
		return
	}

	records := make([]domain.Prompt, len(res.Drafts))
	for i, d := range res.Drafts {
		records[i] = d.Prompt()
	}
	logger := a.requestLogger(r)
	created, err := a.Prompts.CreateMany(r.Context(), records)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			a.error(w, http.StatusUnprocessableEntity, string(domain.KindValidation), err.Error())
			return
		}
		logger.Error().Err(err).Int("drafts", len(records)).Msg("import commit failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to save prompts")
		return
	}
	logger.Info().Str("strategy", string(res.Strategy)).Int("created", len(created)).Msg("prompts imported")
	a.json(w, http.StatusCreated, importResponse{Strategy: res.Strategy, Drafts: res.Drafts, Prompts: created})
}

// PromptsPending reports how many prompts still lack a preview.
func (a *App) PromptsPending(w http.ResponseWriter, r *http.Request) {
	n, err := a.Prompts.CountMissingPreview(r.Context())
	if err != nil {
		logger := a.requestLogger(r)
		logger.Error().Err(err).Msg("count pending prompts failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to count prompts")
		return
	}
	a.json(w, http.StatusOK, pendingResponse{Pending: n})
}

// readImportText accepts a text/plain body or a JSON {"text": ...} object.
func readImportText(w http.ResponseWriter, r *http.Request) (string, error) {
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}
		return string(raw), nil
	}

	var req importRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return "", errors.New("invalid payload")
	}
	return req.Text, nil
}
