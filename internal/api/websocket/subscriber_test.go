package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionIDFromChannel(t *testing.T) {
	cases := []struct {
		channel string
		want    string
	}{
		{"execution:abc-123:events", "abc-123"},
		{"execution::events", ""},
		{"other:abc:events", ""},
		{"execution:abc", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, executionIDFromChannel(tc.channel), tc.channel)
	}
}
