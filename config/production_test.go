package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOperatorKeys(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]uint
	}{
		{
			name: "empty",
			raw:  "",
			want: map[string]uint{},
		},
		{
			name: "single pair",
			raw:  "1:alpha-key",
			want: map[string]uint{"alpha-key": 1},
		},
		{
			name: "multiple pairs with whitespace",
			raw:  " 1:alpha-key , 2:beta-key",
			want: map[string]uint{"alpha-key": 1, "beta-key": 2},
		},
		{
			name: "malformed entries are skipped",
			raw:  "1:alpha-key,nokey,banana:key,3:",
			want: map[string]uint{"alpha-key": 1},
		},
		{
			name: "key containing colons",
			raw:  "5:key:with:colons",
			want: map[string]uint{"key:with:colons": 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseOperatorKeys(tt.raw))
		})
	}
}
