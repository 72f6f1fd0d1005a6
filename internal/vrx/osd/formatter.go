package osd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/raceband/vrxlink/internal/race"
)

// maxCallsignLen bounds pilot callsigns so messages fit the receiver's
// OSD line.
const maxCallsignLen = 10

// suffixSeparator joins the primary line and its rule-dependent suffix.
const suffixSeparator = " / "

// Format carries the configurable pieces of message construction. Zero
// values fall back to the defaults pilots expect.
type Format struct {
	// LapPrefix is the glyph before the lap number ("L" by default).
	LapPrefix string

	// PosPrefix is the glyph before the position (empty by default).
	PosPrefix string

	// TimeFormat is the duration display layout.
	TimeFormat string

	// Lang localises tokens; defaults to the identity language.
	Lang race.Language
}

// Messages is the outcome of formatting one lap crossing: a primary
// message for the pilot who crossed and, under some rules, a secondary
// split update for the pilot ranked immediately ahead.
type Messages struct {
	Primary     string
	PrimarySeat int

	Secondary     string
	SecondarySeat int
	HasSecondary  bool
}

// Build formats the OSD messages for a lap recorded on the given seat.
//
// The second return is false when the seat is not on the leaderboard;
// nothing should be published in that case. Gaps and suffixes that
// cannot be computed are omitted, never the primary message.
func Build(snap race.Snapshot, seat int, f Format) (Messages, bool) {
	f = f.normalized()

	entry, rank := snap.EntryForSeat(seat)
	if rank < 0 {
		return Messages{}, false
	}

	primary := f.entryLine(entry)
	gap, ahead, haveGap := gapToAhead(snap, entry, rank)

	switch snap.WinCondition {
	case race.WinConditionFastestConsecutive:
		// Running consecutive total once the window has data.
		if entry.Laps >= 2 && entry.Consecutives > 0 {
			primary += suffixSeparator +
				strconv.Itoa(entry.ConsecutivesBase) + "/" +
				race.FormatTime(entry.Consecutives, f.TimeFormat)
		}

	case race.WinConditionFastestLap:
		if haveGap {
			primary += f.gapSuffix("+", gap, ahead.Callsign)
		} else if rank == 0 && isPersonalBest(entry) {
			primary += suffixSeparator +
				f.Lang.Text(race.TokenLeader) + " " + f.Lang.Text(race.TokenBestLap)
		}

	default:
		// Most-laps, first-to-lap-X, and unranked all read as gap to
		// the seat ahead on elapsed time.
		if haveGap {
			primary += f.gapSuffix("+", gap, ahead.Callsign)
		}
	}

	out := Messages{Primary: primary, PrimarySeat: seat}

	// Split-behind push to the pilot ahead. The lap-time rules suppress
	// it; their notion of "ahead" churns on every trailing crossing.
	if haveGap &&
		snap.WinCondition != race.WinConditionFastestLap &&
		snap.WinCondition != race.WinConditionFastestConsecutive {
		out.Secondary = f.entryLine(ahead) + f.gapSuffix("-", gap, entry.Callsign)
		out.SecondarySeat = ahead.Seat
		out.HasSecondary = true
	}

	return out, true
}

func (f Format) normalized() Format {
	if f.LapPrefix == "" {
		f.LapPrefix = "L"
	}
	if f.TimeFormat == "" {
		f.TimeFormat = race.DefaultTimeFormat
	}
	if f.Lang == nil {
		f.Lang = race.EnglishLanguage{}
	}
	return f
}

// entryLine builds the position/lap/time line for one pilot. A pilot on
// lap zero just finished the holeshot, so the lap field becomes the
// holeshot token and the time shown is total elapsed rather than last
// lap.
func (f Format) entryLine(e race.LeaderboardEntry) string {
	var lapField, timeField string
	if e.Laps == 0 {
		lapField = f.Lang.Text(race.TokenHoleshot)
		timeField = race.FormatTime(e.TotalTime, f.TimeFormat)
	} else {
		lapField = f.LapPrefix + strconv.Itoa(e.Laps)
		timeField = race.FormatTime(e.LastLap, f.TimeFormat)
	}
	return fmt.Sprintf("%s%d-%s %s|%s",
		f.PosPrefix, e.Position, truncateCallsign(e.Callsign), lapField, timeField)
}

func (f Format) gapSuffix(sign string, gap time.Duration, callsign string) string {
	return suffixSeparator + sign +
		race.FormatTime(gap, f.TimeFormat) + " " + truncateCallsign(callsign)
}

// gapToAhead computes the split between a pilot and the one ranked
// immediately above, on the metric the active rule ranks by. Returns
// false for the leader and whenever the delta is not positive (missing
// snapshot data ranks as zero).
func gapToAhead(snap race.Snapshot, entry race.LeaderboardEntry, rank int) (time.Duration, race.LeaderboardEntry, bool) {
	if rank == 0 {
		return 0, race.LeaderboardEntry{}, false
	}
	ahead := snap.Entries[rank-1]

	var gap time.Duration
	switch snap.WinCondition {
	case race.WinConditionFastestLap:
		gap = entry.BestLap - ahead.BestLap
	case race.WinConditionFastestConsecutive:
		gap = entry.Consecutives - ahead.Consecutives
	default:
		gap = entry.TotalTime - ahead.TotalTime
	}

	if gap <= 0 {
		return 0, ahead, false
	}
	return gap, ahead, true
}

// isPersonalBest reports whether a pilot's last lap matched their best.
func isPersonalBest(e race.LeaderboardEntry) bool {
	return e.LastLap > 0 && e.LastLap == e.BestLap
}

func truncateCallsign(callsign string) string {
	if len(callsign) > maxCallsignLen {
		return callsign[:maxCallsignLen]
	}
	return callsign
}
