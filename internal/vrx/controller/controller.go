package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/raceband/vrxlink/internal/clearview"
	"github.com/raceband/vrxlink/internal/infrastructure/config"
	"github.com/raceband/vrxlink/internal/infrastructure/influxdb"
	"github.com/raceband/vrxlink/internal/infrastructure/logging"
	"github.com/raceband/vrxlink/internal/infrastructure/mqtt"
	"github.com/raceband/vrxlink/internal/journal"
	"github.com/raceband/vrxlink/internal/race"
	"github.com/raceband/vrxlink/internal/vrx/device"
	"github.com/raceband/vrxlink/internal/vrx/osd"
	"github.com/raceband/vrxlink/internal/vrx/seat"
	"github.com/raceband/vrxlink/internal/vrx/topic"
)

// VRxAll addresses every seat at once in calls that take a seat number.
const VRxAll = -1

// ErrReservedCharacter indicates an option value containing the
// receiver's checksum delimiter.
var ErrReservedCharacter = errors.New("controller: reserved character in option value")

// MQTTClient is the transport surface the dispatcher uses. Satisfied by
// *mqtt.Client.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Params collects everything a Controller needs. Client and Config are
// required; the rest defaults sensibly when zero.
type Params struct {
	Config   config.VRxConfig
	QoS      byte
	ClientID string

	Client MQTTClient

	// SeatFrequencies is the initial frequency per seat index. Seats
	// beyond its length start unassigned.
	SeatFrequencies []int

	Language race.Language
	Options  race.Options
	Logger   *logging.Logger

	// Journal and Telemetry are optional observability sinks.
	Journal   journal.Repository
	Telemetry *influxdb.Client
}

// Controller is the command dispatcher: it owns the device registry,
// the per-seat targets and the broadcast target, demultiplexes inbound
// bus messages, and translates race lifecycle events into receiver
// commands.
type Controller struct {
	cfg      config.VRxConfig
	qos      byte
	clientID string

	client MQTTClient
	topics topic.Registry
	lang   race.Language
	opts   race.Options
	log    *logging.Logger

	registry  *device.Registry
	seats     []*seat.Seat
	broadcast *seat.Broadcast

	journal   journal.Repository
	telemetry *influxdb.Client

	// onDeviceData notifies the host timer that device state changed,
	// typically to refresh a status display.
	onDeviceData   func(device.Device)
	onDeviceDataMu sync.RWMutex
}

// busPublisher adapts the MQTT client to the seat layer's Publisher.
// Receiver commands are never retained.
type busPublisher struct {
	client MQTTClient
	qos    byte
}

func (p busPublisher) Publish(t string, payload []byte) error {
	return p.client.Publish(t, payload, p.qos, false)
}

// New builds a controller with one seat per position up to MaxSeat.
func New(p Params) (*Controller, error) {
	if p.Client == nil {
		return nil, errors.New("controller: MQTT client is required")
	}
	if p.Language == nil {
		p.Language = race.EnglishLanguage{}
	}
	if p.Logger == nil {
		p.Logger = logging.Default()
	}

	c := &Controller{
		cfg:       p.Config,
		qos:       p.QoS,
		clientID:  p.ClientID,
		client:    p.Client,
		lang:      p.Language,
		opts:      p.Options,
		log:       p.Logger.With("component", "controller"),
		journal:   p.Journal,
		telemetry: p.Telemetry,
	}

	pub := busPublisher{client: p.Client, qos: p.QoS}
	countdown := time.Duration(p.Config.FrequencyCountdown) * time.Second

	for i := 0; i <= p.Config.MaxSeat; i++ {
		frequency := clearview.FrequencyNone
		if i < len(p.SeatFrequencies) {
			frequency = p.SeatFrequencies[i]
		}
		s, err := seat.NewSeat(i, p.Config.MaxSeat, frequency, pub, p.Language, p.Logger, countdown)
		if err != nil {
			return nil, err
		}
		c.seats = append(c.seats, s)
	}
	c.broadcast = seat.NewBroadcast(pub, p.Language, p.Logger)

	c.registry = device.NewRegistry(c, p.Logger)
	c.registry.SetOnUpdate(c.onDeviceUpdate)

	return c, nil
}

// SetOnDeviceData registers a callback invoked with a device snapshot
// after each registry state change.
func (c *Controller) SetOnDeviceData(fn func(device.Device)) {
	c.onDeviceDataMu.Lock()
	defer c.onDeviceDataMu.Unlock()
	c.onDeviceData = fn
}

// onDeviceUpdate fans a registry state change out to telemetry and the
// host timer.
func (c *Controller) onDeviceUpdate(d device.Device) {
	if c.telemetry != nil {
		c.telemetry.WriteReceiverStatus(d.ID, d.Connected, d.Ready, d.VideoLock)
	}

	c.onDeviceDataMu.RLock()
	fn := c.onDeviceData
	c.onDeviceDataMu.RUnlock()
	if fn != nil {
		fn(d)
	}
}

// Start subscribes to the receiver topics and runs the startup sequence:
// reset every receiver's video lock, request full status, hide the OSD,
// then query lock state and push the configured frequency per seat.
// Frequency pushes run concurrently; Start does not wait for their
// countdowns.
func (c *Controller) Start(ctx context.Context) error {
	subs := []struct {
		cmd     topic.Command
		handler mqtt.MessageHandler
	}{
		{topic.Connection, c.handleConnection},
		{topic.ResponseSeat, c.handleSeatResponse},
		{topic.ResponseDevice, c.handleDeviceResponse},
		{topic.ResponseAll, c.handleAllResponse},
	}
	for _, sub := range subs {
		pattern, err := c.topics.SubscribePattern(sub.cmd)
		if err != nil {
			return err
		}
		if err := c.client.Subscribe(pattern, c.qos, sub.handler); err != nil {
			return fmt.Errorf("subscribing to %s: %w", pattern, err)
		}
	}

	if err := c.broadcast.ResetLock(); err != nil {
		return fmt.Errorf("startup lock reset: %w", err)
	}
	if err := c.RequestStaticStatus(VRxAll); err != nil {
		return err
	}
	if err := c.RequestVariableStatus(VRxAll); err != nil {
		return err
	}
	if err := c.broadcast.TurnOSDOff(); err != nil {
		return err
	}

	for _, s := range c.seats {
		if _, err := s.LockStatusQuery(); err != nil {
			c.log.Warn("startup lock query failed", "seat", s.Number(), "error", err)
		}
		s.SetSeatFrequency(s.Frequency())
	}

	c.log.Info("controller started", "seats", len(c.seats), "client_id", c.clientID)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Shutdown restores receivers for post-event use: user messages cleared,
// full OSD back on, WiFi in access-point mode for direct configuration.
func (c *Controller) Shutdown() error {
	var errs []error
	if err := c.broadcast.ClearUserMessage(); err != nil {
		errs = append(errs, err)
	}
	if err := c.broadcast.TurnOSDOn(); err != nil {
		errs = append(errs, err)
	}
	if err := c.broadcast.SetWifiState(clearview.WifiModeAccessPoint); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Devices returns the registry's view of every known receiver.
func (c *Controller) Devices() []device.Device {
	return c.registry.List()
}

// Device returns one receiver's state.
func (c *Controller) Device(id string) (device.Device, bool) {
	return c.registry.Get(id)
}

// --- inbound message handlers ---

// handleConnection processes presence announcements. The controller's
// own retained status arrives on the same wildcard and is skipped.
func (c *Controller) handleConnection(t string, payload []byte) error {
	id := lastSegment(t)
	if id == "" || id == c.clientID {
		return nil
	}

	connected := string(payload) == "1"
	c.log.Info("receiver presence", "device_id", id, "connected", connected)
	c.registry.OnDeviceAnnounced(id, connected)

	c.journalEvent(id, connectionEventType(connected), nil, nil)
	return nil
}

// handleDeviceResponse processes a targeted status report.
func (c *Controller) handleDeviceResponse(t string, payload []byte) error {
	id := lastSegment(t)
	if id == "" {
		return nil
	}

	before, _ := c.registry.Get(id)
	if err := c.registry.OnStatusResponse(id, payload); err != nil {
		return err
	}

	if after, ok := c.registry.Get(id); ok && !before.Ready && after.Ready {
		var seatNum *int
		if after.HasSeat {
			n := after.Seat
			seatNum = &n
		}
		c.journalEvent(id, journal.EventReady, seatNum, map[string]any{
			"cv_version": after.CVVersion,
			"video_lock": after.VideoLock,
		})
	}
	return nil
}

// handleSeatResponse logs per-seat responses. Device state only changes
// on targeted reports, which carry the responder's identity.
func (c *Controller) handleSeatResponse(t string, payload []byte) error {
	c.log.Debug("seat response", "topic", t, "payload", string(payload))
	return nil
}

func (c *Controller) handleAllResponse(t string, payload []byte) error {
	c.log.Debug("broadcast response", "payload", string(payload))
	return nil
}

// --- device.Configurator ---

// RequestStatus publishes a status request to one device.
func (c *Controller) RequestStatus(deviceID, mode string) error {
	t, err := c.topics.Resolve(topic.CommandDevice, topic.TargetDevice, deviceID)
	if err != nil {
		return err
	}
	return c.publish(t, []byte(mode))
}

// ApplySeatConfig pushes a seat's frequency to one device and hides its
// OSD, the state racing expects a freshly joined receiver to be in.
func (c *Controller) ApplySeatConfig(deviceID string, seatNum int) error {
	s, err := c.seatFor(seatNum)
	if err != nil {
		return err
	}
	t, err := c.topics.Resolve(topic.CommandDevice, topic.TargetDevice, deviceID)
	if err != nil {
		return err
	}

	if frequency := s.Frequency(); frequency != clearview.FrequencyNone {
		if bc, ok := clearview.ToBandChannel(frequency); ok {
			payload, err := json.Marshal(bc)
			if err != nil {
				return err
			}
			if err := c.publish(t, payload); err != nil {
				return err
			}
		} else {
			c.log.Warn("frequency has no band/channel designation", "device_id", deviceID, "frequency", frequency)
		}
	}

	if err := c.publish(t, []byte(`{"osd_visibility":"D"}`)); err != nil {
		return err
	}

	c.journalEvent(deviceID, journal.EventConfigured, &seatNum, nil)
	return nil
}

// --- status fan-out ---

// RequestStaticStatus requests identity reports from one seat's devices,
// or from everything when seatNum is VRxAll.
func (c *Controller) RequestStaticStatus(seatNum int) error {
	if seatNum == VRxAll {
		c.registry.MarkRequested(device.AllSeats)
		return c.broadcast.RequestStaticStatus()
	}
	s, err := c.seatFor(seatNum)
	if err != nil {
		return err
	}
	c.registry.MarkRequested(seatNum)
	return s.RequestStaticStatus()
}

// RequestVariableStatus requests live reports from one seat's devices,
// or from everything when seatNum is VRxAll.
func (c *Controller) RequestVariableStatus(seatNum int) error {
	if seatNum == VRxAll {
		c.registry.MarkRequested(device.AllSeats)
		return c.broadcast.RequestVariableStatus()
	}
	s, err := c.seatFor(seatNum)
	if err != nil {
		return err
	}
	c.registry.MarkRequested(seatNum)
	return s.RequestVariableStatus()
}

// UpdateStatus re-queries lock state and live status across the fleet.
// Called on the host timer's polling cadence.
func (c *Controller) UpdateStatus() error {
	if _, err := c.broadcast.LockStatusQuery(); err != nil {
		return err
	}
	return c.RequestVariableStatus(VRxAll)
}

// GetSeatLockStatus queries video lock for one seat or the whole fleet.
func (c *Controller) GetSeatLockStatus(seatNum int) ([]byte, error) {
	if seatNum == VRxAll {
		return c.broadcast.LockStatusQuery()
	}
	s, err := c.seatFor(seatNum)
	if err != nil {
		return nil, err
	}
	return s.LockStatusQuery()
}

// --- messaging and addressing ---

// SetMessageDirect writes a raw message to one seat's OSDs, or to every
// OSD when seatNum is VRxAll.
func (c *Controller) SetMessageDirect(seatNum int, message string) error {
	if seatNum == VRxAll {
		return c.broadcast.SetMessageDirect(&message)
	}
	s, err := c.seatFor(seatNum)
	if err != nil {
		return err
	}
	return s.SetMessageDirect(&message)
}

// SetSeatNumber moves receivers to a new seat subscription. Exactly one
// of currentSeat and deviceID selects the target: currentSeat moves all
// of a seat's receivers, deviceID moves a single receiver (and flags it
// for reconfiguration). Neither set is an error.
func (c *Controller) SetSeatNumber(desiredSeat int, currentSeat *int, deviceID string) error {
	if desiredSeat < 0 || desiredSeat > c.cfg.MaxSeat {
		return fmt.Errorf("%w: %d (max %d)", seat.ErrSeatOutOfRange, desiredSeat, c.cfg.MaxSeat)
	}

	if currentSeat != nil {
		s, err := c.seatFor(*currentSeat)
		if err != nil {
			return err
		}
		return s.SetSeatNumber(desiredSeat)
	}

	if deviceID != "" {
		t, err := c.topics.Resolve(topic.CommandDevice, topic.TargetDevice, deviceID)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(map[string]any{"seat": strconv.Itoa(desiredSeat)})
		if err != nil {
			return err
		}
		if err := c.publish(t, payload); err != nil {
			return err
		}
		c.registry.MarkNeedsConfig(deviceID)
		return nil
	}

	return fmt.Errorf("%w: no seat or device selected", seat.ErrMissingTarget)
}

// SetSeatFrequency runs the two-phase frequency change for one seat.
// The change completes asynchronously after the pilot countdown.
func (c *Controller) SetSeatFrequency(seatNum, frequency int) error {
	s, err := c.seatFor(seatNum)
	if err != nil {
		return err
	}
	if c.telemetry != nil {
		c.telemetry.WriteSeatFrequency(seatNum, frequency)
	}
	s.SetSeatFrequency(frequency)
	return nil
}

// --- helpers ---

func (c *Controller) seatFor(seatNum int) (*seat.Seat, error) {
	if seatNum < 0 || seatNum >= len(c.seats) {
		return nil, fmt.Errorf("%w: %d (max %d)", seat.ErrSeatOutOfRange, seatNum, len(c.seats)-1)
	}
	return c.seats[seatNum], nil
}

func (c *Controller) publish(t string, payload []byte) error {
	return c.client.Publish(t, payload, c.qos, false)
}

// journalEvent records a device event when the journal is enabled.
// Journal failures are logged, never propagated; observability must not
// break receiver control.
func (c *Controller) journalEvent(deviceID, eventType string, seatNum *int, details map[string]any) {
	if c.journal == nil {
		return
	}
	event := &journal.Event{
		DeviceID:  deviceID,
		EventType: eventType,
		Seat:      seatNum,
		Details:   details,
	}
	if err := c.journal.Create(context.Background(), event); err != nil {
		c.log.Warn("journal write failed", "device_id", deviceID, "event", eventType, "error", err)
	}
}

func connectionEventType(connected bool) string {
	if connected {
		return journal.EventConnected
	}
	return journal.EventDisconnected
}

// lastSegment returns the text after the final slash of a topic.
func lastSegment(t string) string {
	if i := strings.LastIndexByte(t, '/'); i >= 0 {
		return t[i+1:]
	}
	return t
}

// option reads a configurable value from the host timer, falling back
// when no option store is wired.
func (c *Controller) option(name, fallback string) string {
	if c.opts == nil {
		return fallback
	}
	return c.opts.Option(name, fallback)
}

// Format assembles the OSD formatting configuration from current
// options.
func (c *Controller) format() osd.Format {
	return osd.Format{
		LapPrefix:  c.option(race.OptionLapHeader, "L"),
		PosPrefix:  c.option(race.OptionPositionHeader, ""),
		TimeFormat: c.option(race.OptionTimeFormat, race.DefaultTimeFormat),
		Lang:       c.lang,
	}
}
