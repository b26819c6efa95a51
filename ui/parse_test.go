package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		h, m, s int
	}{
		{"90", 0, 1, 30},
		{"3:00", 0, 3, 0},
		{" 1:02:03 ", 1, 2, 3},
		{"75:00", 1, 15, 0},
		{"23:59:59", 23, 59, 59},
	}
	for _, tt := range tests {
		h, m, s, err := parseDuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, [3]int{tt.h, tt.m, tt.s}, [3]int{h, m, s}, tt.in)
	}

	for _, in := range []string{"", "0", "0:00", "abc", "1:60", "-5", "1:2:3:4", "24:00:00"} {
		_, _, _, err := parseDuration(in)
		assert.ErrorIs(t, err, errInvalidDuration, in)
	}
}
