package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTime(t *testing.T) {
	tests := []struct {
		sec  int
		want string
	}{
		{-4, "00:00"},
		{0, "00:00"},
		{59, "00:59"},
		{61, "01:01"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{23*3600 + 59*60 + 59, "23:59:59"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTime(tt.sec), "FormatTime(%d)", tt.sec)
	}
}

func TestDisplay(t *testing.T) {
	idle := TimerItem{Phase: PhaseIdle, Minutes: 3}
	assert.Equal(t, "03:00", Display(idle))

	running := TimerItem{Phase: PhaseRunning, Minutes: 3, RemainingSec: 75}
	assert.Equal(t, "01:15", Display(running))
}
