package siser

import (
	"bytes"
	"testing"
	"time"

	"github.com/alecthomas/assert"
)

func TestMarshalLine(t *testing.T) {
	tm := time.UnixMilli(1700000000123)
	tests := []struct {
		name string
		t    time.Time
		d    string
		exp  string
	}{
		{"ev", tm, "a: 1", "--- 4 1700000000123 ev\na: 1\n"},
		{"", tm, "a: 1\n", "--- 5 1700000000123\na: 1\n"},
		{"ev", tm, "", "--- 0 1700000000123 ev\n"},
		{"ev", time.Time{}, "x", "--- 1 ev\nx\n"},
		{"", time.Time{}, "", "--- 0\n"},
	}
	var wb bytes.Buffer
	for _, tc := range tests {
		got := MarshalLine(tc.name, tc.t, []byte(tc.d), nil)
		assert.Equal(t, tc.exp, string(got))
		// re-used buffer gives the same result
		got = MarshalLine(tc.name, tc.t, []byte(tc.d), &wb)
		assert.Equal(t, tc.exp, string(got))
	}
}
