package timer

import (
	"fmt"
)

// FormatTime converts a number of seconds into h:mm:ss, or mm:ss when the
// value is below one hour.
func FormatTime(sec int) string {
	if sec < 0 {
		sec = 0
	}
	if sec >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
	}
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}

// Display returns the value the UI shows for t: the configured duration
// while idle, the countdown otherwise.
func Display(t TimerItem) string {
	if t.Phase == PhaseIdle {
		return FormatTime(t.TotalSeconds())
	}
	return FormatTime(t.RemainingSec)
}
