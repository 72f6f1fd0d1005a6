package device

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/raceband/vrxlink/internal/clearview"
	"github.com/raceband/vrxlink/internal/infrastructure/logging"
)

// Registry tracks every receiver that has announced itself on the bus.
//
// All state transitions are driven by inbound messages, so every method
// is safe for concurrent use. The registry never publishes directly; it
// asks its Configurator to.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device

	cfg Configurator
	log *logging.Logger

	// onUpdate, when set, receives a copy of a device after each state
	// change. Used for journaling and telemetry.
	onUpdate func(Device)

	// now is replaceable in tests.
	now func() time.Time
}

// NewRegistry creates an empty device registry. The configurator is
// consulted whenever a device needs a status request or its initial seat
// configuration.
func NewRegistry(cfg Configurator, log *logging.Logger) *Registry {
	if log == nil {
		log = logging.Default()
	}
	return &Registry{
		devices: make(map[string]*Device),
		cfg:     cfg,
		log:     log.With("component", "device_registry"),
		now:     time.Now,
	}
}

// SetOnUpdate registers a callback invoked with a device snapshot after
// each state change. Call before message handling starts.
func (r *Registry) SetOnUpdate(fn func(Device)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onUpdate = fn
}

// OnDeviceAnnounced records a connection announcement for a device.
//
// The call is idempotent: repeated announcements with the same connected
// state change nothing. A device that connects before it is ready is
// marked as needing configuration and asked for both status reports.
// Disconnects only flip Connected; learned state is kept.
func (r *Registry) OnDeviceAnnounced(id string, connected bool) {
	r.mu.Lock()

	dev, ok := r.devices[id]
	if !ok {
		dev = &Device{ID: id, Extended: make(map[string]any)}
		r.devices[id] = dev
		r.log.Info("device announced", "device_id", id, "connected", connected)
	}

	dev.Connected = connected

	requestStatus := false
	if connected && !dev.Ready && !dev.NeedsConfig {
		dev.NeedsConfig = true
		dev.LastRequest = r.now()
		requestStatus = true
	}

	snapshot := dev.clone()
	onUpdate := r.onUpdate
	r.mu.Unlock()

	if requestStatus && r.cfg != nil {
		if err := r.cfg.RequestStatus(id, clearview.RequestStaticStatus); err != nil {
			r.log.Warn("static status request failed", "device_id", id, "error", err)
		}
		if err := r.cfg.RequestStatus(id, clearview.RequestVariableStatus); err != nil {
			r.log.Warn("variable status request failed", "device_id", id, "error", err)
		}
	}

	if onUpdate != nil {
		onUpdate(snapshot)
	}
}

// OnStatusResponse merges a status report from a device into the
// registry.
//
// Payloads shorter than MinStatusPayload or that fail to parse as JSON
// mark the device not ready and return ErrMalformedPayload. Recognised
// keys update their fields; everything else lands in Extended verbatim.
// A device waiting on its initial configuration gets it pushed as soon
// as a valid response makes it ready.
func (r *Registry) OnStatusResponse(id string, payload []byte) error {
	if len(payload) < MinStatusPayload {
		r.markNotReady(id)
		return fmt.Errorf("%w: %d bytes from %s", ErrMalformedPayload, len(payload), id)
	}

	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		r.markNotReady(id)
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, id, err)
	}

	r.mu.Lock()
	dev, ok := r.devices[id]
	if !ok {
		// Status before any announcement; the broker delivered out of
		// order. Register it rather than losing the report.
		dev = &Device{ID: id, Connected: true, Extended: make(map[string]any)}
		r.devices[id] = dev
	}

	for key, value := range fields {
		r.mergeField(dev, key, value)
	}

	dev.Ready = true
	dev.LastResponse = r.now()

	configure := dev.NeedsConfig
	snapshot := dev.clone()
	onUpdate := r.onUpdate
	r.mu.Unlock()

	if onUpdate != nil {
		onUpdate(snapshot)
	}

	if configure {
		if _, err := r.PerformInitialConfiguration(id); err != nil {
			return err
		}
	}
	return nil
}

// mergeField applies one status key to a device. Caller holds the lock.
func (r *Registry) mergeField(dev *Device, key string, value any) {
	str, isString := value.(string)

	switch key {
	case "device_name":
		if isString {
			dev.Name = str
			return
		}
	case "ip_addr":
		if isString {
			dev.Address = str
			return
		}
	case "device_type":
		if isString {
			dev.DeviceType = str
			return
		}
	case "video_format":
		if isString {
			dev.VideoFormat = str
			return
		}
	case "cv_version":
		if isString {
			dev.CVVersion = str
			return
		}
	case "cvcm_version":
		if isString {
			dev.CVCMVersion = str
			return
		}
	case "osd_visibility":
		if isString {
			dev.OSDVisibility = str
			return
		}
	case "seat":
		if isString {
			seat, err := strconv.Atoi(str)
			if err != nil {
				r.log.Warn("non-numeric seat in status", "device_id", dev.ID, "seat", str)
				return
			}
			dev.Seat = seat
			dev.HasSeat = true
			return
		}
	case "lock":
		if isString {
			if len(str) != 3 {
				r.log.Warn("unexpected lock report length", "device_id", dev.ID, "lock", str)
				return
			}
			dev.ChosenCamera = str[0:1]
			dev.CameraForced = str[1:2] != clearview.CameraAuto
			dev.VideoLock = str[2:3] == clearview.VideoLocked
			return
		}
	}

	// Unrecognised key, or a recognised key with a surprising type.
	dev.Extended[key] = value
}

// markNotReady flags a device that sent garbage; a later valid response
// restores it.
func (r *Registry) markNotReady(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if dev, ok := r.devices[id]; ok {
		dev.Ready = false
	}
}

// PerformInitialConfiguration pushes seat settings to one device.
//
// Returns false without error when the device has no seat yet; that is
// the normal ordering race between connection and the first variable
// status report, and configuration retries on the next response.
func (r *Registry) PerformInitialConfiguration(id string) (bool, error) {
	r.mu.Lock()
	dev, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	if !dev.HasSeat {
		r.mu.Unlock()
		r.log.Info("deferring configuration, no seat reported yet", "device_id", id)
		return false, nil
	}
	seat := dev.Seat
	r.mu.Unlock()

	if r.cfg != nil {
		if err := r.cfg.ApplySeatConfig(id, seat); err != nil {
			return false, fmt.Errorf("configuring device %s: %w", id, err)
		}
	}

	r.mu.Lock()
	if dev, ok := r.devices[id]; ok {
		dev.NeedsConfig = false
	}
	r.mu.Unlock()

	r.log.Info("device configured", "device_id", id, "seat", seat)
	return true, nil
}

// MarkRequested stamps LastRequest on every device at the given seat, or
// on all devices when seat is AllSeats. Called alongside a fanned-out
// status request so staleness is measurable per device.
func (r *Registry) MarkRequested(seat int) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, dev := range r.devices {
		if seat == AllSeats || (dev.HasSeat && dev.Seat == seat) {
			dev.LastRequest = now
		}
	}
}

// MarkNeedsConfig flags one device for reconfiguration on its next
// status response. Used after a targeted seat reassignment, where the
// device's settings no longer match its new position.
func (r *Registry) MarkNeedsConfig(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if dev, ok := r.devices[id]; ok {
		dev.NeedsConfig = true
	}
}

// Get returns a copy of one device's state.
func (r *Registry) Get(id string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dev, ok := r.devices[id]
	if !ok {
		return Device{}, false
	}
	return dev.clone(), true
}

// List returns copies of every known device, ordered by ID.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.devices))
	for _, dev := range r.devices {
		out = append(out, dev.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DevicesForSeat returns copies of every device reporting the given seat.
func (r *Registry) DevicesForSeat(seat int) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Device
	for _, dev := range r.devices {
		if dev.HasSeat && dev.Seat == seat {
			out = append(out, dev.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of known devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
