package infra

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name   string
		appEnv string
		level  string
		want   zerolog.Level
	}{
		{name: "development", appEnv: "development", want: zerolog.DebugLevel},
		{name: "production", appEnv: "production", want: zerolog.InfoLevel},
		{name: "override", appEnv: "production", level: "warn", want: zerolog.WarnLevel},
		{name: "bad override ignored", appEnv: "production", level: "loud", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLogger(&bytes.Buffer{}, tt.appEnv, tt.level)
			if got := l.GetLevel(); got != tt.want {
				t.Fatalf("level = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewLoggerWritesJSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "production", "")
	l.Info().Str("component", "test").Msg("hello")

	out := buf.String()
	if !strings.HasPrefix(out, "{") {
		t.Fatalf("expected JSON line, got %q", out)
	}
	if !strings.Contains(out, `"service":"promptvault"`) || !strings.Contains(out, `"component":"test"`) {
		t.Fatalf("missing fields in %q", out)
	}
}
