package enrich

import (
	"slices"

	"github.com/goccy/go-json"

	"promptvault/internal/domain"
)

// EventType discriminates stream events.
type EventType string

const (
	EventSuccess  EventType = "success"
	EventError    EventType = "error"
	EventCritical EventType = "critical_error"
	EventComplete EventType = "complete"
)

// Event is one progress message of an enrichment run. Only the fields that
// belong to Type are encoded.
type Event struct {
	Type        EventType        `json:"type"`
	PromptID    string           `json:"promptId,omitempty"`
	PromptTitle string           `json:"promptTitle,omitempty"`
	ImageURL    string           `json:"imageUrl,omitempty"`
	Error       string           `json:"error,omitempty"`
	ErrorKind   domain.ErrorKind `json:"errorKind,omitempty"`
	Current     int              `json:"current"`
	Total       int              `json:"total"`
	Generated   int              `json:"generated"`
	Failed      int              `json:"failed"`
}

// Terminal reports whether no event follows this one.
func (e Event) Terminal() bool {
	return e.Type == EventCritical || e.Type == EventComplete
}

// MarshalJSON writes the wire shape for the event type.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventSuccess:
		return json.Marshal(struct {
			Type        EventType `json:"type"`
			PromptID    string    `json:"promptId"`
			PromptTitle string    `json:"promptTitle"`
			ImageURL    string    `json:"imageUrl"`
			Current     int       `json:"current"`
			Total       int       `json:"total"`
		}{e.Type, e.PromptID, e.PromptTitle, e.ImageURL, e.Current, e.Total})
	case EventError:
		return json.Marshal(struct {
			Type        EventType        `json:"type"`
			PromptID    string           `json:"promptId"`
			PromptTitle string           `json:"promptTitle"`
			Error       string           `json:"error"`
			ErrorKind   domain.ErrorKind `json:"errorKind"`
			Current     int              `json:"current"`
			Total       int              `json:"total"`
		}{e.Type, e.PromptID, e.PromptTitle, e.Error, e.ErrorKind, e.Current, e.Total})
	case EventCritical:
		return json.Marshal(struct {
			Type      EventType        `json:"type"`
			Error     string           `json:"error"`
			ErrorKind domain.ErrorKind `json:"errorKind"`
			Generated int              `json:"generated"`
			Failed    int              `json:"failed"`
			Total     int              `json:"total"`
		}{e.Type, e.Error, e.ErrorKind, e.Generated, e.Failed, e.Total})
	case EventComplete:
		return json.Marshal(struct {
			Type      EventType `json:"type"`
			Generated int       `json:"generated"`
			Failed    int       `json:"failed"`
			Total     int       `json:"total"`
		}{e.Type, e.Generated, e.Failed, e.Total})
	default:
		type plain Event
		return json.Marshal(plain(e))
	}
}

// Failure is one entry of a run's error log.
type Failure struct {
	PromptID string           `json:"promptId"`
	Title    string           `json:"promptTitle"`
	Kind     domain.ErrorKind `json:"errorKind"`
	Message  string           `json:"error"`
}

// Progress is the counter state of a run. Each step returns a new value;
// the receiver is never modified.
type Progress struct {
	Generated int
	Failed    int
	Total     int
	Failures  []Failure
}

// Current is the number of settled records.
func (p Progress) Current() int {
	return p.Generated + p.Failed
}

func (p Progress) withSuccess() Progress {
	p.Generated++
	return p
}

func (p Progress) withFailure(f Failure) Progress {
	p.Failed++
	p.Failures = append(slices.Clip(p.Failures), f)
	return p
}
