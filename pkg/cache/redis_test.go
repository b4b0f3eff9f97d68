package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestClient_Key tests key namespacing
func TestClient_Key(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		parts  []string
		want   string
	}{
		{"prefixed", "karpool", []string{"session", "phone", "token"}, "karpool:session:phone:token"},
		{"no prefix", "", []string{"session", "token"}, "session:token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{prefix: tt.prefix}
			assert.Equal(t, tt.want, c.Key(tt.parts...))
		})
	}
}

// TestClient_CloseNil tests that closing a missing client is a no-op
func TestClient_CloseNil(t *testing.T) {
	var c *Client
	assert.NoError(t, c.Close())
}
