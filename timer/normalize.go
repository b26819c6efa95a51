package timer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NormalizeJSON decodes raw and repairs it with Normalize. Anything that is
// not a JSON array is treated as an empty collection.
func NormalizeJSON(raw []byte, now time.Time) []TimerItem {
	return normalizeJSON(raw, now, defaultTimer)
}

func normalizeJSON(raw []byte, now time.Time, fallback func() TimerItem) []TimerItem {
	var persisted []any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &persisted); err != nil {
			persisted = nil
		}
	}
	return normalize(persisted, now, fallback)
}

// Normalize turns an untrusted persisted collection into consistent timers.
// Time that passed while nothing was observing is applied here: a running
// timer whose deadline is behind now comes back finished. The result is
// never empty.
func Normalize(persisted []any, now time.Time) []TimerItem {
	return normalize(persisted, now, defaultTimer)
}

func defaultTimer() TimerItem {
	return newDefaultTimer("Timer 1", DefaultDuration)
}

func normalize(persisted []any, now time.Time, fallback func() TimerItem) []TimerItem {
	nowMs := now.UnixMilli()
	seen := make(map[string]bool, len(persisted))
	out := make([]TimerItem, 0, len(persisted))

	for _, rec := range persisted {
		fields, ok := rec.(map[string]any)
		if !ok {
			continue
		}
		t := normalizeRecord(fields, nowMs)
		if t.ID == "" || seen[t.ID] {
			t.ID = uuid.NewString()
		}
		seen[t.ID] = true
		out = append(out, t)
	}

	if len(out) == 0 {
		out = append(out, fallback())
	}
	return out
}

func normalizeRecord(f map[string]any, nowMs int64) TimerItem {
	t := TimerItem{
		ID:      strings.TrimSpace(asString(f["id"])),
		Name:    asString(f["name"]),
		Hours:   clamp(asInt(f["hours"]), 0, MaxHours),
		Minutes: clamp(asInt(f["minutes"]), 0, MaxMinutes),
		Seconds: clamp(asInt(f["seconds"]), 0, MaxSeconds),
		Phase:   Phase(asString(f["phase"])),
	}
	if !t.Phase.Valid() {
		t.Phase = PhaseIdle
	}
	remaining := max(asInt(f["remainingSec"]), 0)
	endAt, hasEndAt := asInt64(f["endAtMs"])
	atPause, hasAtPause := asInt64(f["remainingAtPause"])
	alarmFired := asBool(f["alarmFired"])
	nativeScheduled := asBool(f["nativeScheduled"])

	switch t.Phase {
	case PhaseRunning:
		if !hasEndAt {
			// No deadline to recompute from; keep the last known value.
			if remaining > 0 {
				t.Phase = PhasePaused
				t.RemainingSec = remaining
				t.RemainingAtPause = intPtr(remaining)
			} else {
				t.toIdle()
			}
			break
		}
		remain := remainingSeconds(endAt, nowMs)
		if remain <= 0 {
			t.toFinished()
			t.AlarmFired = false
			break
		}
		t.RemainingSec = remain
		t.EndAtMs = int64Ptr(endAt)
		t.NativeScheduled = nativeScheduled
	case PhasePaused:
		if hasAtPause {
			remaining = int(min(max(atPause, 0), math.MaxInt32))
		}
		t.RemainingSec = remaining
		t.RemainingAtPause = intPtr(remaining)
	case PhaseFinished:
		t.toFinished()
		t.AlarmFired = alarmFired
	default:
		t.toIdle()
	}
	return t
}

func newDefaultTimer(name string, d time.Duration) TimerItem {
	h, m, s := splitDuration(d)
	return TimerItem{
		ID:      uuid.NewString(),
		Name:    name,
		Hours:   h,
		Minutes: m,
		Seconds: s,
		Phase:   PhaseIdle,
	}
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}

func asInt(v any) int {
	n, _ := asInt64(v)
	return int(min(max(n, math.MinInt32), math.MaxInt32))
}

// asInt64 accepts JSON numbers and numeric strings. NaN, infinities and
// anything else report false.
func asInt64(v any) (int64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f > math.MaxInt64/2 {
		return math.MaxInt64 / 2, true
	}
	if f < math.MinInt64/2 {
		return math.MinInt64 / 2, true
	}
	return int64(math.Floor(f)), true
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(x)
		return b
	}
	return false
}
