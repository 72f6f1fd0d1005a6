package seat

import (
	"encoding/json"

	"github.com/raceband/vrxlink/internal/clearview"
	"github.com/raceband/vrxlink/internal/infrastructure/logging"
	"github.com/raceband/vrxlink/internal/race"
	"github.com/raceband/vrxlink/internal/vrx/topic"
)

// Broadcast addresses every receiver on the network at once. It carries
// the shared Target vocabulary plus group-only operations: lock reset,
// user-message clear, and WiFi mode changes.
type Broadcast struct {
	cmdTopic string

	pub  Publisher
	lang race.Language
	log  *logging.Logger
}

// NewBroadcast creates the all-receivers target.
func NewBroadcast(pub Publisher, lang race.Language, log *logging.Logger) *Broadcast {
	if lang == nil {
		lang = race.EnglishLanguage{}
	}
	if log == nil {
		log = logging.Default()
	}

	cmdTopic, err := topic.Registry{}.Resolve(topic.CommandAll, topic.TargetAll, nil)
	if err != nil {
		// The broadcast command is in the static table; failing here is
		// a build-time mistake.
		panic(err)
	}

	return &Broadcast{
		cmdTopic: cmdTopic,
		pub:      pub,
		lang:     lang,
		log:      log.With("component", "broadcast"),
	}
}

// SetMessageDirect writes a raw message to every OSD.
func (b *Broadcast) SetMessageDirect(message *string) error {
	if message == nil {
		b.log.Warn("message call with no text, ignoring")
		return ErrMissingTarget
	}
	return b.publishJSON(userMessagePayload(*message))
}

// ClearUserMessage blanks the user message line on every OSD.
func (b *Broadcast) ClearUserMessage() error {
	return b.publishJSON(userMessagePayload(""))
}

// ResetLock forces every receiver to redo video lock acquisition.
func (b *Broadcast) ResetLock() error {
	return b.publishJSON(map[string]any{"lock": "1"})
}

// SetWifiState switches every receiver's WiFi radio mode.
func (b *Broadcast) SetWifiState(mode clearview.WifiMode) error {
	return b.publishJSON(map[string]any{"wifi": int(mode)})
}

// RequestStaticStatus asks every receiver for its identity report.
func (b *Broadcast) RequestStaticStatus() error {
	return b.pub.Publish(b.cmdTopic, []byte(clearview.RequestStaticStatus))
}

// RequestVariableStatus asks every receiver for its live report.
func (b *Broadcast) RequestVariableStatus() error {
	return b.pub.Publish(b.cmdTopic, []byte(clearview.RequestVariableStatus))
}

// TurnOSDOff hides all OSD elements except the user message, everywhere.
func (b *Broadcast) TurnOSDOff() error {
	return b.publishJSON(osdVisibilityPayload(clearview.OSDVisibilityHidden))
}

// TurnOSDOn restores all OSD elements everywhere.
func (b *Broadcast) TurnOSDOn() error {
	return b.publishJSON(osdVisibilityPayload(clearview.OSDVisibilityEnabled))
}

// LockStatusQuery asks every receiver to report video lock and returns
// the payload that was sent.
func (b *Broadcast) LockStatusQuery() ([]byte, error) {
	payload, err := json.Marshal(map[string]any{"lock": "?"})
	if err != nil {
		return nil, err
	}
	if err := b.pub.Publish(b.cmdTopic, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (b *Broadcast) publishJSON(fields map[string]any) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return b.pub.Publish(b.cmdTopic, payload)
}
