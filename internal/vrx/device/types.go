package device

import "time"

// MinStatusPayload is the shortest status response worth parsing. The
// receiver firmware never emits a valid status under 7 bytes; anything
// shorter is line noise or a truncated frame.
const MinStatusPayload = 7

// AllSeats selects every seat in calls that take a seat filter.
const AllSeats = -1

// Device is the registry's view of one wireless OSD receiver. The ID is
// the receiver's MQTT client identity and never changes; everything else
// is learned from inbound messages.
//
// Lifecycle: a device is created on its first connection announcement,
// becomes Ready once a parseable status response arrives, and is
// Configured once its seat settings have been pushed. Disconnects only
// flip Connected; entries are never removed.
type Device struct {
	ID        string
	Connected bool

	// Ready means at least one well-formed status response has been
	// merged since the device appeared.
	Ready bool

	// NeedsConfig marks a device that announced itself but has not yet
	// had its seat configuration pushed.
	NeedsConfig bool

	// Seat is the logical pilot position the receiver reported. HasSeat
	// is false until the first status response carries one; the value
	// survives disconnects until a later response overwrites it.
	Seat    int
	HasSeat bool

	Name          string
	Address       string
	DeviceType    string
	VideoFormat   string
	CVVersion     string
	CVCMVersion   string
	OSDVisibility string

	// Video lock report, decomposed from the 3-character lock code:
	// chosen camera type, whether the choice was forced, and whether the
	// receiver has video lock.
	ChosenCamera string
	CameraForced bool
	VideoLock    bool

	// Extended holds status keys the registry does not recognise,
	// preserved verbatim. Receiver firmware adds fields between releases
	// and the controller must not drop them.
	Extended map[string]any

	LastRequest  time.Time
	LastResponse time.Time
}

// clone returns a copy safe to hand outside the registry lock. Extended
// is duplicated so callers never alias a map still being merged into.
func (d *Device) clone() Device {
	out := *d
	out.Extended = make(map[string]any, len(d.Extended))
	for k, v := range d.Extended {
		out.Extended[k] = v
	}
	return out
}

// Configurator performs the outbound side of device configuration. The
// registry decides when a device needs a status request or its initial
// seat push; the dispatcher owns how those reach the wire.
type Configurator interface {
	// RequestStatus asks one device for a status report. Mode is the
	// receiver status request code (static or variable).
	RequestStatus(deviceID, mode string) error

	// ApplySeatConfig pushes the current frequency and OSD settings for
	// a seat to one device.
	ApplySeatConfig(deviceID string, seat int) error
}
