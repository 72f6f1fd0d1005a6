package race

import "time"

// WinCondition identifies the scoring rule a heat is run under. It
// determines both leaderboard ordering and which split times matter to a
// pilot mid-race.
type WinCondition int

// WinCondition values.
const (
	// WinConditionNone ranks pilots without a finishing rule (open practice).
	WinConditionNone WinCondition = iota
	// WinConditionMostLaps ranks by lap count, then total time.
	WinConditionMostLaps
	// WinConditionFirstToLapX ends the heat when a pilot reaches the target lap.
	WinConditionFirstToLapX
	// WinConditionFastestLap ranks by single best lap time.
	WinConditionFastestLap
	// WinConditionFastestConsecutive ranks by the best sum of N consecutive laps.
	WinConditionFastestConsecutive
)

// LeaderboardEntry is one pilot's progress in a results snapshot, already
// ranked under the snapshot's win condition. Raw durations are carried so
// split arithmetic happens here rather than on pre-formatted strings.
type LeaderboardEntry struct {
	Seat         int
	Callsign     string
	Position     int
	Laps         int
	LastLap      time.Duration
	BestLap      time.Duration
	TotalTime    time.Duration
	Consecutives time.Duration
	// ConsecutivesBase is the lap count the Consecutives sum covers.
	ConsecutivesBase int
}

// Snapshot is an ordered leaderboard produced by the timing engine after a
// lap is recorded. Entries are sorted best-first under WinCondition.
// Snapshots are consumed read-only.
type Snapshot struct {
	WinCondition WinCondition
	Entries      []LeaderboardEntry
}

// EntryForSeat returns the entry for the given seat and its rank index.
// The second return is -1 if the seat is not on the board.
func (s Snapshot) EntryForSeat(seat int) (LeaderboardEntry, int) {
	for i, e := range s.Entries {
		if e.Seat == seat {
			return e, i
		}
	}
	return LeaderboardEntry{}, -1
}

// HeatAssignment describes one seat's pilot for heat-change messaging.
type HeatAssignment struct {
	Seat     int
	Callsign string
	HeatName string
	Round    int
}

// Options exposes the timing engine's configurable option store.
// Option values are stored as strings; absent keys yield the fallback.
type Options interface {
	Option(name, fallback string) string
	SetOption(name, value string)
}

// Language resolves a token to its localised display text. Unknown tokens
// return the token itself so messages degrade readably.
type Language interface {
	Text(token string) string
}

// Option keys read by the OSD pipeline.
const (
	OptionTimeFormat     = "timeFormat"
	OptionLapHeader      = "osd_lapHeader"
	OptionPositionHeader = "osd_positionHeader"
)

// Language tokens used in OSD messages.
const (
	TokenHoleshot     = "HS"
	TokenBestLap      = "Best Lap"
	TokenLeader       = "Leader"
	TokenGo           = "Go"
	TokenTimeExpired  = "Time Expired"
	TokenRaceStopped  = "Race Stopped. Land Now."
	TokenArmNow       = "Arm now"
	TokenRound        = "Round"
	TokenNone         = "-None-"
	TokenFreqWarning  = "!!! Frequency changing to %d in <%ds !!!"
	TokenLapsCleared  = "---"
)

// EnglishLanguage is the identity Language used when the host timer does
// not supply translations.
type EnglishLanguage struct{}

// Text implements Language.
func (EnglishLanguage) Text(token string) string { return token }
