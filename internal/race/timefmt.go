package race

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimeFormat renders durations as "1:23.456".
const DefaultTimeFormat = "{m}:{s}.{d}"

// FormatTime renders a duration using the timing engine's display layout.
//
// Layout placeholders:
//   - {m}: whole minutes, not padded
//   - {s}: seconds within the minute, zero-padded to 2
//   - {d}: milliseconds, zero-padded to 3
//
// Negative durations are clamped to zero; the sign of a split is part of
// the surrounding message, not the time itself.
func FormatTime(d time.Duration, layout string) string {
	if layout == "" {
		layout = DefaultTimeFormat
	}
	if d < 0 {
		d = 0
	}

	ms := d.Milliseconds()
	minutes := ms / 60000
	seconds := (ms % 60000) / 1000
	millis := ms % 1000

	out := strings.ReplaceAll(layout, "{m}", fmt.Sprintf("%d", minutes))
	out = strings.ReplaceAll(out, "{s}", fmt.Sprintf("%02d", seconds))
	out = strings.ReplaceAll(out, "{d}", fmt.Sprintf("%03d", millis))
	return out
}
