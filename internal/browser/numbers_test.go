package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
		ok    bool
	}{
		{"plain integer", "42", 42, true},
		{"with thousands separator", "1,234", 1234, true},
		{"thousands suffix", "1.2K", 1200, true},
		{"lowercase suffix", "3k", 3000, true},
		{"millions suffix", "10.5M", 10500000, true},
		{"billions suffix", "2B", 2000000000, true},
		{"surrounding whitespace", "  87 ", 87, true},
		{"suffix with space", "1.5 K", 1500, true},
		{"empty", "", 0, false},
		{"words", "likes", 0, false},
		{"negative", "-5", 0, false},
		{"trailing garbage", "12 likes", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCount(tt.input)
			if !tt.ok {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}
