package controller

import (
	"fmt"
	"strings"

	"github.com/raceband/vrxlink/internal/clearview"
	"github.com/raceband/vrxlink/internal/race"
	"github.com/raceband/vrxlink/internal/vrx/osd"
)

// Race lifecycle entry points, called by the host timer's event loop.
// Every handler is fire-and-forget: publish failures are logged and
// never propagate back into the timer.

// OnRaceStage tells each seated pilot to arm.
func (c *Controller) OnRaceStage(assignments []race.HeatAssignment) {
	for _, a := range assignments {
		if a.Callsign == "" {
			continue
		}
		message := fmt.Sprintf("%s | %s", a.Callsign, c.lang.Text(race.TokenArmNow))
		if err := c.SetMessageDirect(a.Seat, message); err != nil {
			c.log.Warn("stage message failed", "seat", a.Seat, "error", err)
		}
	}
}

// OnRaceStart announces the start to every pilot.
func (c *Controller) OnRaceStart() {
	c.broadcastToken(race.TokenGo)
}

// OnRaceFinish announces that race time has run out.
func (c *Controller) OnRaceFinish() {
	c.broadcastToken(race.TokenTimeExpired)
}

// OnRaceStop tells every pilot to land immediately.
func (c *Controller) OnRaceStop() {
	c.broadcastToken(race.TokenRaceStopped)
}

// OnLapsClear resets every pilot's display after laps are discarded.
func (c *Controller) OnLapsClear() {
	c.broadcastToken(race.TokenLapsCleared)
}

func (c *Controller) broadcastToken(token string) {
	if err := c.SetMessageDirect(VRxAll, c.lang.Text(token)); err != nil {
		c.log.Warn("broadcast message failed", "token", token, "error", err)
	}
}

// OnHeatSet shows each seated pilot their assignment for the next heat.
func (c *Controller) OnHeatSet(assignments []race.HeatAssignment) {
	for _, a := range assignments {
		if a.Callsign == "" {
			continue
		}

		var message string
		if a.HeatName != "" {
			message = fmt.Sprintf("%s | %s | %s %d",
				a.Callsign, a.HeatName, c.lang.Text(race.TokenRound), a.Round)
		} else {
			message = c.lang.Text(race.TokenNone)
		}

		if err := c.SetMessageDirect(a.Seat, message); err != nil {
			c.log.Warn("heat message failed", "seat", a.Seat, "error", err)
		}
	}
}

// OnRaceLapRecorded runs the formatting pipeline for a recorded lap and
// pushes the results to the crossing pilot and, rule permitting, the
// pilot ahead.
func (c *Controller) OnRaceLapRecorded(snap race.Snapshot, seatNum int) {
	msgs, ok := osd.Build(snap, seatNum, c.format())
	if !ok {
		c.log.Warn("lap recorded for a seat missing from results", "seat", seatNum)
		return
	}

	if err := c.SetMessageDirect(msgs.PrimarySeat, msgs.Primary); err != nil {
		c.log.Warn("lap message failed", "seat", msgs.PrimarySeat, "error", err)
	}
	if msgs.HasSecondary {
		if err := c.SetMessageDirect(msgs.SecondarySeat, msgs.Secondary); err != nil {
			c.log.Warn("split message failed", "seat", msgs.SecondarySeat, "error", err)
		}
	}
}

// OnFrequencySet handles a frequency assignment from the host timer.
func (c *Controller) OnFrequencySet(seatNum, frequency int) {
	if err := c.SetSeatFrequency(seatNum, frequency); err != nil {
		c.log.Error("frequency set failed", "seat", seatNum, "frequency", frequency, "error", err)
	}
}

// OnSendPriorityMessage pushes an operator message to every pilot.
func (c *Controller) OnSendPriorityMessage(message string) {
	if err := c.SetMessageDirect(VRxAll, message); err != nil {
		c.log.Warn("priority message failed", "error", err)
	}
}

// OnOptionSet validates a changed display option. The receiver firmware
// reserves the checksum character; a prefix glyph containing it is
// rejected and the stored option reset to empty.
func (c *Controller) OnOptionSet(name, value string) error {
	if name != race.OptionLapHeader && name != race.OptionPositionHeader {
		return nil
	}

	if strings.Contains(value, clearview.MessageChecksum) {
		c.log.Error("reserved character in option value", "option", name, "value", value)
		if c.opts != nil {
			c.opts.SetOption(name, "")
		}
		return fmt.Errorf("%w: %q in %s", ErrReservedCharacter, clearview.MessageChecksum, name)
	}
	return nil
}
