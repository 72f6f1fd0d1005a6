package seat

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/raceband/vrxlink/internal/clearview"
	"github.com/raceband/vrxlink/internal/infrastructure/logging"
	"github.com/raceband/vrxlink/internal/race"
	"github.com/raceband/vrxlink/internal/vrx/topic"
)

// Publisher sends one payload to a topic. Satisfied by the MQTT client
// through a thin adapter in the dispatcher.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Target is the command vocabulary shared by per-seat and broadcast
// addressing. The returned payloads are what went on the wire, useful
// for logging and tests.
type Target interface {
	SetMessageDirect(message *string) error
	RequestStaticStatus() error
	RequestVariableStatus() error
	TurnOSDOn() error
	TurnOSDOff() error
	LockStatusQuery() ([]byte, error)
}

// Seat addresses every receiver subscribed to one pilot position.
type Seat struct {
	number   int
	cmdTopic string

	pub    Publisher
	topics topic.Registry
	lang   race.Language
	log    *logging.Logger

	// countdown is the pilot warning delay before a frequency change is
	// applied.
	countdown time.Duration

	// sleep is replaceable in tests.
	sleep func(time.Duration)

	mu        sync.Mutex
	frequency int
}

// NewSeat creates a seat for the given pilot position with its initial
// frequency assignment. Nothing is published until the first command;
// startup announces the assignment through SetSeatFrequency.
//
// Returns ErrSeatOutOfRange when number is outside [0, maxSeat].
func NewSeat(number, maxSeat int, frequency int, pub Publisher, lang race.Language, log *logging.Logger, countdown time.Duration) (*Seat, error) {
	if number < 0 || number > maxSeat {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrSeatOutOfRange, number, maxSeat)
	}
	if lang == nil {
		lang = race.EnglishLanguage{}
	}
	if log == nil {
		log = logging.Default()
	}

	cmdTopic, err := topic.Registry{}.Resolve(topic.CommandSeat, topic.TargetSeat, number)
	if err != nil {
		return nil, err
	}

	return &Seat{
		number:    number,
		cmdTopic:  cmdTopic,
		pub:       pub,
		lang:      lang,
		log:       log.With("component", "seat", "seat", number),
		countdown: countdown,
		sleep:     time.Sleep,
		frequency: frequency,
	}, nil
}

// Number returns the seat's pilot position.
func (s *Seat) Number() int { return s.number }

// Frequency returns the last frequency pushed through this seat.
func (s *Seat) Frequency() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frequency
}

// SetMessageDirect writes a raw message to the seat's OSDs. A nil
// message is rejected; an empty string is valid and clears the line.
func (s *Seat) SetMessageDirect(message *string) error {
	if message == nil {
		s.log.Warn("message call with no text, ignoring")
		return ErrMissingTarget
	}
	return s.publishJSON(userMessagePayload(*message))
}

// SetSeatNumber tells every receiver on this seat to resubscribe under a
// new position. No registry state moves here; the new mapping is learned
// from each device's next status report.
func (s *Seat) SetSeatNumber(newSeat int) error {
	return s.publishJSON(map[string]any{"seat": strconv.Itoa(newSeat)})
}

// SetSeatFrequency changes the seat's video frequency in two phases:
// warn the pilot, wait out the countdown, then retune and clear the
// warning. The change runs in its own goroutine so seats never serialize
// on each other; the returned channel closes when the change completes.
func (s *Seat) SetSeatFrequency(frequency int) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		warning := fmt.Sprintf(s.lang.Text(race.TokenFreqWarning), frequency, int(s.countdown/time.Second))
		if err := s.SetMessageDirect(&warning); err != nil {
			s.log.Warn("frequency warning publish failed", "error", err)
		}

		s.sleep(s.countdown)

		if err := s.SetSeatFrequencyDirect(frequency); err != nil {
			s.log.Warn("frequency change failed", "frequency", frequency, "error", err)
		}

		blank := s.lang.Text("")
		if err := s.SetMessageDirect(&blank); err != nil {
			s.log.Warn("frequency warning clear failed", "error", err)
		}
	}()
	return done
}

// SetSeatFrequencyDirect retunes the seat immediately, without the pilot
// warning. The no-frequency sentinel records the assignment but sends
// nothing; a frequency missing from the band plan is logged and dropped.
func (s *Seat) SetSeatFrequencyDirect(frequency int) error {
	s.mu.Lock()
	s.frequency = frequency
	s.mu.Unlock()

	if frequency == clearview.FrequencyNone {
		return nil
	}

	bc, ok := clearview.ToBandChannel(frequency)
	if !ok {
		s.log.Warn("frequency has no band/channel designation", "frequency", frequency)
		return fmt.Errorf("%w: %d MHz", ErrUnsupportedFrequency, frequency)
	}

	payload, err := json.Marshal(bc)
	if err != nil {
		return err
	}
	return s.pub.Publish(s.cmdTopic, payload)
}

// RequestStaticStatus asks the seat's receivers for their identity report.
func (s *Seat) RequestStaticStatus() error {
	return s.pub.Publish(s.cmdTopic, []byte(clearview.RequestStaticStatus))
}

// RequestVariableStatus asks the seat's receivers for their live report.
func (s *Seat) RequestVariableStatus() error {
	return s.pub.Publish(s.cmdTopic, []byte(clearview.RequestVariableStatus))
}

// TurnOSDOff hides all OSD elements except the user message.
func (s *Seat) TurnOSDOff() error {
	return s.publishJSON(osdVisibilityPayload(clearview.OSDVisibilityHidden))
}

// TurnOSDOn restores all OSD elements.
func (s *Seat) TurnOSDOn() error {
	return s.publishJSON(osdVisibilityPayload(clearview.OSDVisibilityEnabled))
}

// LockStatusQuery asks the seat's receivers to report video lock and
// returns the payload that was sent.
func (s *Seat) LockStatusQuery() ([]byte, error) {
	payload, err := json.Marshal(map[string]any{"lock": "?"})
	if err != nil {
		return nil, err
	}
	if err := s.pub.Publish(s.cmdTopic, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *Seat) publishJSON(fields map[string]any) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return s.pub.Publish(s.cmdTopic, payload)
}

// userMessagePayload builds the user-message command, truncating to the
// longest text a receiver renders.
func userMessagePayload(message string) map[string]any {
	if len(message) > clearview.UserMessageMaxLen {
		message = message[:clearview.UserMessageMaxLen]
	}
	return map[string]any{"user_msg": message}
}

func osdVisibilityPayload(state string) map[string]any {
	return map[string]any{"osd_visibility": state}
}
