package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNothingPending = errors.New("no prompts are missing a preview image")

	ErrValidation             = errors.New("validation error")
	ErrUpstreamRateLimited    = errors.New("upstream rate limited")
	ErrUpstreamQuotaExhausted = errors.New("upstream quota exhausted")
	ErrUpstream               = errors.New("upstream error")
	ErrDecode                 = errors.New("decode error")
	ErrUpload                 = errors.New("upload error")
	ErrPersistUpdate          = errors.New("persist update error")
	ErrTransportParse         = errors.New("transport parse error")
)

// ErrorKind is the wire label of a classified failure.
type ErrorKind string

const (
	KindValidation             ErrorKind = "validation_error"
	KindUpstreamRateLimited    ErrorKind = "upstream_rate_limited"
	KindUpstreamQuotaExhausted ErrorKind = "upstream_quota_exhausted"
	KindUpstream               ErrorKind = "upstream_error"
	KindDecode                 ErrorKind = "decode_error"
	KindUpload                 ErrorKind = "upload_error"
	KindPersistUpdate          ErrorKind = "persist_update_error"
	KindTransportParse         ErrorKind = "transport_parse_error"
)

// Classify maps an error onto its kind. Unrecognized errors are treated as
// generic upstream failures.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrUpstreamRateLimited):
		return KindUpstreamRateLimited
	case errors.Is(err, ErrUpstreamQuotaExhausted):
		return KindUpstreamQuotaExhausted
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrUpload):
		return KindUpload
	case errors.Is(err, ErrPersistUpdate):
		return KindPersistUpdate
	case errors.Is(err, ErrTransportParse):
		return KindTransportParse
	default:
		return KindUpstream
	}
}

// IsCritical reports whether the error must stop an enrichment job.
func IsCritical(err error) bool {
	return errors.Is(err, ErrUpstreamRateLimited) || errors.Is(err, ErrUpstreamQuotaExhausted)
}

// Critical reports whether the kind is job-fatal.
func (k ErrorKind) Critical() bool {
	return k == KindUpstreamRateLimited || k == KindUpstreamQuotaExhausted
}

// ValidateContent rejects prompt content that is empty or too short.
func ValidateContent(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return fmt.Errorf("%w: content is empty", ErrValidation)
	}
	if utf8.RuneCountInString(trimmed) < MinContentLength {
		return fmt.Errorf("%w: content is shorter than %d characters", ErrValidation, MinContentLength)
	}
	return nil
}
