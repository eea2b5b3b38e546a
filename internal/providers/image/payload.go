package image

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"promptvault/internal/domain"
)

// Decoded is binary image content recovered from a generator payload.
type Decoded struct {
	Data []byte
	MIME string
}

// DecodePayload accepts a data URL ("data:image/png;base64,...") or bare
// base64 and returns the bytes. Failures wrap domain.ErrDecode.
func DecodePayload(payload string) (Decoded, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Decoded{}, fmt.Errorf("%w: empty payload", domain.ErrDecode)
	}

	mime := ""
	if isDataURL(payload) {
		header, body, ok := strings.Cut(payload[len("data:"):], ",")
		if !ok {
			return Decoded{}, fmt.Errorf("%w: data url without body", domain.ErrDecode)
		}
		if !strings.HasSuffix(header, ";base64") {
			return Decoded{}, fmt.Errorf("%w: data url is not base64", domain.ErrDecode)
		}
		mime = strings.TrimSuffix(header, ";base64")
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if len(data) == 0 {
		return Decoded{}, fmt.Errorf("%w: empty image", domain.ErrDecode)
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return Decoded{Data: data, MIME: mime}, nil
}

// Extension maps an image MIME type to a file extension.
func Extension(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}

func isDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}
