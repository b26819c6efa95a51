package ui

import (
	"errors"
	"strconv"
	"strings"

	"KitchenTimers/timer"
)

var errInvalidDuration = errors.New("invalid duration")

// parseDuration accepts "h:mm:ss", "mm:ss" or a plain number of seconds and
// splits it into clock fields. Zero and values beyond 23:59:59 are rejected.
func parseDuration(input string) (h, m, s int, err error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, 0, 0, errInvalidDuration
	}

	parts := strings.Split(input, ":")
	if len(parts) > 3 {
		return 0, 0, 0, errInvalidDuration
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, convErr := strconv.Atoi(strings.TrimSpace(p))
		if convErr != nil || n < 0 {
			return 0, 0, 0, errInvalidDuration
		}
		if i > 0 && n > 59 {
			return 0, 0, 0, errInvalidDuration
		}
		nums[i] = n
	}

	var total int
	for _, n := range nums {
		total = total*60 + n
	}
	if total <= 0 || total > timer.MaxHours*3600+timer.MaxMinutes*60+timer.MaxSeconds {
		return 0, 0, 0, errInvalidDuration
	}
	return total / 3600, (total % 3600) / 60, total % 60, nil
}
