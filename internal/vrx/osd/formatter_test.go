package osd

import (
	"testing"
	"time"

	"github.com/raceband/vrxlink/internal/race"
)

func mostLapsSnapshot() race.Snapshot {
	return race.Snapshot{
		WinCondition: race.WinConditionMostLaps,
		Entries: []race.LeaderboardEntry{
			{Seat: 0, Callsign: "PILOT0", Position: 1, Laps: 4,
				LastLap:   22900 * time.Millisecond,
				BestLap:   22100 * time.Millisecond,
				TotalTime: 95 * time.Second},
			{Seat: 1, Callsign: "PILOT1", Position: 2, Laps: 4,
				LastLap:   23456 * time.Millisecond,
				BestLap:   23456 * time.Millisecond,
				TotalTime: 96234 * time.Millisecond},
			{Seat: 2, Callsign: "PILOT2", Position: 3, Laps: 3,
				LastLap:   25 * time.Second,
				BestLap:   24 * time.Second,
				TotalTime: 99 * time.Second},
		},
	}
}

func TestBuildMostLaps(t *testing.T) {
	msgs, ok := Build(mostLapsSnapshot(), 1, Format{})
	if !ok {
		t.Fatal("Build returned not ok")
	}

	if want := "2-PILOT1 L4|0:23.456 / +0:01.234 PILOT0"; msgs.Primary != want {
		t.Errorf("Primary = %q, want %q", msgs.Primary, want)
	}
	if msgs.PrimarySeat != 1 {
		t.Errorf("PrimarySeat = %d", msgs.PrimarySeat)
	}

	if !msgs.HasSecondary {
		t.Fatal("no secondary message for the pilot ahead")
	}
	if msgs.SecondarySeat != 0 {
		t.Errorf("SecondarySeat = %d, want 0", msgs.SecondarySeat)
	}
	if want := "1-PILOT0 L4|0:22.900 / -0:01.234 PILOT1"; msgs.Secondary != want {
		t.Errorf("Secondary = %q, want %q", msgs.Secondary, want)
	}
}

func TestBuildLeaderHasNoGapSuffix(t *testing.T) {
	msgs, ok := Build(mostLapsSnapshot(), 0, Format{})
	if !ok {
		t.Fatal("Build returned not ok")
	}
	if want := "1-PILOT0 L4|0:22.900"; msgs.Primary != want {
		t.Errorf("Primary = %q, want %q", msgs.Primary, want)
	}
	if msgs.HasSecondary {
		t.Error("leader crossing produced a secondary message")
	}
}

func TestBuildFastestLapLeaderPersonalBest(t *testing.T) {
	snap := race.Snapshot{
		WinCondition: race.WinConditionFastestLap,
		Entries: []race.LeaderboardEntry{
			{Seat: 3, Callsign: "ACE", Position: 1, Laps: 5,
				LastLap: 21500 * time.Millisecond,
				BestLap: 21500 * time.Millisecond,
			},
			{Seat: 0, Callsign: "CHASER", Position: 2, Laps: 5,
				LastLap: 22 * time.Second,
				BestLap: 21900 * time.Millisecond,
			},
		},
	}

	msgs, ok := Build(snap, 3, Format{})
	if !ok {
		t.Fatal("Build returned not ok")
	}
	if want := "1-ACE L5|0:21.500 / Leader Best Lap"; msgs.Primary != want {
		t.Errorf("Primary = %q, want %q", msgs.Primary, want)
	}
	if msgs.HasSecondary {
		t.Error("fastest-lap rule must not push a secondary message")
	}

	// The chaser gets a best-lap delta against the leader.
	msgs, ok = Build(snap, 0, Format{})
	if !ok {
		t.Fatal("Build returned not ok")
	}
	if want := "2-CHASER L5|0:22.000 / +0:00.400 ACE"; msgs.Primary != want {
		t.Errorf("Primary = %q, want %q", msgs.Primary, want)
	}
	if msgs.HasSecondary {
		t.Error("fastest-lap rule must not push a secondary message")
	}
}

func TestBuildConsecutive(t *testing.T) {
	snap := race.Snapshot{
		WinCondition: race.WinConditionFastestConsecutive,
		Entries: []race.LeaderboardEntry{
			{Seat: 0, Callsign: "ONE", Position: 1, Laps: 4,
				LastLap:          23 * time.Second,
				Consecutives:     68 * time.Second,
				ConsecutivesBase: 3},
			{Seat: 1, Callsign: "TWO", Position: 2, Laps: 4,
				LastLap:          24 * time.Second,
				Consecutives:     70 * time.Second,
				ConsecutivesBase: 3},
		},
	}

	msgs, ok := Build(snap, 1, Format{})
	if !ok {
		t.Fatal("Build returned not ok")
	}
	if want := "2-TWO L4|0:24.000 / 3/1:10.000"; msgs.Primary != want {
		t.Errorf("Primary = %q, want %q", msgs.Primary, want)
	}
	if msgs.HasSecondary {
		t.Error("consecutive rule must not push a secondary message")
	}

	// Under two laps there is no window yet, so no suffix.
	snap.Entries[1].Laps = 1
	snap.Entries[1].Consecutives = 0
	msgs, _ = Build(snap, 1, Format{})
	if want := "2-TWO L1|0:24.000"; msgs.Primary != want {
		t.Errorf("Primary = %q, want %q", msgs.Primary, want)
	}
}

func TestBuildHoleshot(t *testing.T) {
	snap := race.Snapshot{
		WinCondition: race.WinConditionMostLaps,
		Entries: []race.LeaderboardEntry{
			{Seat: 0, Callsign: "FIRST", Position: 1, Laps: 0,
				TotalTime: 3400 * time.Millisecond},
		},
	}

	msgs, ok := Build(snap, 0, Format{})
	if !ok {
		t.Fatal("Build returned not ok")
	}
	if want := "1-FIRST HS|0:03.400"; msgs.Primary != want {
		t.Errorf("Primary = %q, want %q", msgs.Primary, want)
	}
}

func TestBuildPrefixesAndTruncation(t *testing.T) {
	snap := race.Snapshot{
		WinCondition: race.WinConditionMostLaps,
		Entries: []race.LeaderboardEntry{
			{Seat: 0, Callsign: "VERYLONGCALLSIGN", Position: 1, Laps: 2,
				LastLap: 30 * time.Second, TotalTime: 60 * time.Second},
		},
	}

	msgs, ok := Build(snap, 0, Format{LapPrefix: "*", PosPrefix: "P"})
	if !ok {
		t.Fatal("Build returned not ok")
	}
	if want := "P1-VERYLONGCA *2|0:30.000"; msgs.Primary != want {
		t.Errorf("Primary = %q, want %q", msgs.Primary, want)
	}
}

func TestBuildSeatNotOnBoard(t *testing.T) {
	if _, ok := Build(mostLapsSnapshot(), 6, Format{}); ok {
		t.Error("Build returned ok for a seat missing from the leaderboard")
	}
}

func TestBuildMissingGapData(t *testing.T) {
	// Second-ranked pilot with zero total times on both entries: the gap
	// cannot be computed, so the primary stands alone and no secondary
	// goes out.
	snap := race.Snapshot{
		WinCondition: race.WinConditionMostLaps,
		Entries: []race.LeaderboardEntry{
			{Seat: 0, Callsign: "A", Position: 1, Laps: 3, LastLap: 20 * time.Second},
			{Seat: 1, Callsign: "B", Position: 2, Laps: 3, LastLap: 21 * time.Second},
		},
	}

	msgs, ok := Build(snap, 1, Format{})
	if !ok {
		t.Fatal("Build returned not ok")
	}
	if want := "2-B L3|0:21.000"; msgs.Primary != want {
		t.Errorf("Primary = %q, want %q", msgs.Primary, want)
	}
	if msgs.HasSecondary {
		t.Error("secondary pushed without a computable gap")
	}
}
