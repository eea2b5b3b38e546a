package enrich

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptvault/internal/domain"
)

func TestEventWireShapes(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{
			name: "success",
			ev:   Event{Type: EventSuccess, PromptID: "p1", PromptTitle: "Portrait #1", ImageURL: "http://x/p1.png", Current: 1, Total: 3},
			want: `{"type":"success","promptId":"p1","promptTitle":"Portrait #1","imageUrl":"http://x/p1.png","current":1,"total":3}`,
		},
		{
			name: "error",
			ev:   Event{Type: EventError, PromptID: "p2", PromptTitle: "Prompt #2", Error: "decode error: bad", ErrorKind: domain.KindDecode, Current: 2, Total: 3},
			want: `{"type":"error","promptId":"p2","promptTitle":"Prompt #2","error":"decode error: bad","errorKind":"decode_error","current":2,"total":3}`,
		},
		{
			name: "critical",
			ev:   Event{Type: EventCritical, Error: "quota", ErrorKind: domain.KindUpstreamQuotaExhausted, Generated: 0, Failed: 0, Total: 3, Current: 9},
			want: `{"type":"critical_error","error":"quota","errorKind":"upstream_quota_exhausted","generated":0,"failed":0,"total":3}`,
		},
		{
			name: "complete",
			ev:   Event{Type: EventComplete, Generated: 2, Failed: 1, Total: 3},
			want: `{"type":"complete","generated":2,"failed":1,"total":3}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := json.Marshal(tc.ev)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(raw))
		})
	}
}

func TestEventDecodesFromWire(t *testing.T) {
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(`{"type":"complete","generated":2,"failed":1,"total":3}`), &ev))
	assert.Equal(t, Event{Type: EventComplete, Generated: 2, Failed: 1, Total: 3}, ev)
	assert.True(t, ev.Terminal())
}
