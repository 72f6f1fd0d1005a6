package controller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raceband/vrxlink/internal/infrastructure/config"
	"github.com/raceband/vrxlink/internal/infrastructure/mqtt"
	"github.com/raceband/vrxlink/internal/race"
	"github.com/raceband/vrxlink/internal/vrx/device"
	"github.com/raceband/vrxlink/internal/vrx/seat"
)

type published struct {
	topic   string
	payload string
}

type fakeBus struct {
	mu       sync.Mutex
	sent     []published
	handlers map[string]mqtt.MessageHandler
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBus) Publish(topic string, payload []byte, _ byte, _ bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, published{topic: topic, payload: string(payload)})
	return nil
}

func (b *fakeBus) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBus) all() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.sent...)
}

func (b *fakeBus) sentTo(topic string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, p := range b.sent {
		if p.topic == topic {
			out = append(out, p.payload)
		}
	}
	return out
}

// deliver feeds a message to the handler registered for a pattern.
func (b *fakeBus) deliver(t *testing.T, pattern, topic string, payload string) {
	t.Helper()
	b.mu.Lock()
	handler, ok := b.handlers[pattern]
	b.mu.Unlock()
	if !ok {
		t.Fatalf("no subscription for %q", pattern)
	}
	if err := handler(topic, []byte(payload)); err != nil {
		t.Logf("handler(%s) returned %v", topic, err)
	}
}

type fakeOptions struct {
	mu     sync.Mutex
	values map[string]string
}

func (o *fakeOptions) Option(name, fallback string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if v, ok := o.values[name]; ok {
		return v
	}
	return fallback
}

func (o *fakeOptions) SetOption(name, value string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.values == nil {
		o.values = make(map[string]string)
	}
	o.values[name] = value
}

func newTestController(t *testing.T, bus *fakeBus) *Controller {
	t.Helper()
	c, err := New(Params{
		Config: config.VRxConfig{
			Enabled:            true,
			MaxSeat:            3,
			FrequencyCountdown: 10,
		},
		ClientID:        "vrxlink-controller",
		Client:          bus,
		SeatFrequencies: []int{5658, 5695},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestStartSubscribesAndConfigures(t *testing.T) {
	bus := newFakeBus()
	c := newTestController(t, bus)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for _, pattern := range []string{
		"vrx/conn/+", "vrx/resp/seat/+", "vrx/resp/device/+", "vrx/resp/all",
	} {
		if _, ok := bus.handlers[pattern]; !ok {
			t.Errorf("no subscription for %q", pattern)
		}
	}

	broadcast := bus.sentTo("vrx/cmd/all")
	want := []string{`{"lock":"1"}`, "RQS", "RQV", `{"osd_visibility":"D"}`}
	if len(broadcast) < len(want) {
		t.Fatalf("broadcast startup sequence = %v", broadcast)
	}
	for i, w := range want {
		if broadcast[i] != w {
			t.Errorf("broadcast[%d] = %s, want %s", i, broadcast[i], w)
		}
	}

	// Every seat gets a lock query.
	for _, topic := range []string{"vrx/cmd/seat/0", "vrx/cmd/seat/1", "vrx/cmd/seat/2", "vrx/cmd/seat/3"} {
		payloads := bus.sentTo(topic)
		found := false
		for _, p := range payloads {
			if p == `{"lock":"?"}` {
				found = true
			}
		}
		if !found {
			t.Errorf("no lock query on %s: %v", topic, payloads)
		}
	}
}

func TestConnectionHandlerIgnoresSelf(t *testing.T) {
	bus := newFakeBus()
	c := newTestController(t, bus)
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	bus.deliver(t, "vrx/conn/+", "vrx/conn/vrxlink-controller", "1")
	if len(c.Devices()) != 0 {
		t.Error("controller registered its own presence as a device")
	}

	bus.deliver(t, "vrx/conn/+", "vrx/conn/CV2-7", "1")
	devices := c.Devices()
	if len(devices) != 1 || devices[0].ID != "CV2-7" || !devices[0].Connected {
		t.Errorf("Devices() = %+v", devices)
	}

	// Announcement triggers targeted status requests.
	targeted := bus.sentTo("vrx/cmd/device/CV2-7")
	if len(targeted) != 2 || targeted[0] != "RQS" || targeted[1] != "RQV" {
		t.Errorf("targeted requests = %v", targeted)
	}

	bus.deliver(t, "vrx/conn/+", "vrx/conn/CV2-7", "0")
	dev, _ := c.Device("CV2-7")
	if dev.Connected {
		t.Error("disconnect not applied")
	}
}

func TestStatusResponseDrivesInitialConfig(t *testing.T) {
	bus := newFakeBus()
	c := newTestController(t, bus)
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	bus.deliver(t, "vrx/conn/+", "vrx/conn/CV2-7", "1")
	bus.deliver(t, "vrx/resp/device/+", "vrx/resp/device/CV2-7",
		`{"seat": "1", "device_name": "Receiver 7", "lock": "NAL"}`)

	dev, ok := c.Device("CV2-7")
	if !ok || !dev.Ready || dev.Seat != 1 || dev.NeedsConfig {
		t.Fatalf("device state after status = %+v", dev)
	}

	// Seat 1 carries 5695 (R2): the device gets the tune plus OSD off.
	targeted := bus.sentTo("vrx/cmd/device/CV2-7")
	var foundTune, foundOSD bool
	for _, p := range targeted {
		if p == `{"band":"R","channel":2}` {
			foundTune = true
		}
		if p == `{"osd_visibility":"D"}` {
			foundOSD = true
		}
	}
	if !foundTune || !foundOSD {
		t.Errorf("initial config publishes = %v", targeted)
	}
}

func TestOnDeviceDataCallback(t *testing.T) {
	bus := newFakeBus()
	c := newTestController(t, bus)
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var ids []string
	c.SetOnDeviceData(func(d device.Device) {
		mu.Lock()
		ids = append(ids, d.ID)
		mu.Unlock()
	})

	bus.deliver(t, "vrx/conn/+", "vrx/conn/CV2-4", "1")
	bus.deliver(t, "vrx/resp/device/+", "vrx/resp/device/CV2-4", `{"seat": "0"}`)

	mu.Lock()
	defer mu.Unlock()
	if len(ids) < 2 {
		t.Fatalf("device data callback fired %d times, want at least 2", len(ids))
	}
	for _, id := range ids {
		if id != "CV2-4" {
			t.Errorf("callback saw unexpected device %q", id)
		}
	}
}

func TestLapRecordedPublishesMessages(t *testing.T) {
	bus := newFakeBus()
	c := newTestController(t, bus)

	snap := race.Snapshot{
		WinCondition: race.WinConditionMostLaps,
		Entries: []race.LeaderboardEntry{
			{Seat: 0, Callsign: "PILOT0", Position: 1, Laps: 4,
				LastLap: 22900 * time.Millisecond, TotalTime: 95 * time.Second},
			{Seat: 1, Callsign: "PILOT1", Position: 2, Laps: 4,
				LastLap: 23456 * time.Millisecond, TotalTime: 96234 * time.Millisecond},
		},
	}

	c.OnRaceLapRecorded(snap, 1)

	primary := bus.sentTo("vrx/cmd/seat/1")
	if len(primary) != 1 || primary[0] != `{"user_msg":"2-PILOT1 L4|0:23.456 / +0:01.234 PILOT0"}` {
		t.Errorf("primary = %v", primary)
	}
	secondary := bus.sentTo("vrx/cmd/seat/0")
	if len(secondary) != 1 || !strings.Contains(secondary[0], "-0:01.234 PILOT1") {
		t.Errorf("secondary = %v", secondary)
	}
}

func TestLifecycleBroadcasts(t *testing.T) {
	bus := newFakeBus()
	c := newTestController(t, bus)

	c.OnRaceStart()
	c.OnRaceFinish()
	c.OnRaceStop()
	c.OnLapsClear()
	c.OnSendPriorityMessage("clear the gates")

	want := []string{
		`{"user_msg":"Go"}`,
		`{"user_msg":"Time Expired"}`,
		`{"user_msg":"Race Stopped. Land Now."}`,
		`{"user_msg":"---"}`,
		`{"user_msg":"clear the gates"}`,
	}
	got := bus.sentTo("vrx/cmd/all")
	if len(got) != len(want) {
		t.Fatalf("broadcasts = %v", got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("broadcast[%d] = %s, want %s", i, got[i], w)
		}
	}
}

func TestStageAndHeatMessages(t *testing.T) {
	bus := newFakeBus()
	c := newTestController(t, bus)

	assignments := []race.HeatAssignment{
		{Seat: 0, Callsign: "ALPHA", HeatName: "Heat 2", Round: 3},
		{Seat: 1, Callsign: ""},
		{Seat: 2, Callsign: "BRAVO"},
	}

	c.OnRaceStage(assignments)
	if got := bus.sentTo("vrx/cmd/seat/0"); len(got) != 1 || got[0] != `{"user_msg":"ALPHA | Arm now"}` {
		t.Errorf("stage seat 0 = %v", got)
	}
	if got := bus.sentTo("vrx/cmd/seat/1"); len(got) != 0 {
		t.Errorf("empty seat received stage message: %v", got)
	}

	c.OnHeatSet(assignments)
	seat0 := bus.sentTo("vrx/cmd/seat/0")
	if last := seat0[len(seat0)-1]; last != `{"user_msg":"ALPHA | Heat 2 | Round 3"}` {
		t.Errorf("heat seat 0 = %v", last)
	}
	seat2 := bus.sentTo("vrx/cmd/seat/2")
	if last := seat2[len(seat2)-1]; last != `{"user_msg":"-None-"}` {
		t.Errorf("heat seat 2 without heat = %v", last)
	}
}

func TestOnOptionSet(t *testing.T) {
	bus := newFakeBus()
	opts := &fakeOptions{}

	c, err := New(Params{
		Config:   config.VRxConfig{MaxSeat: 3, FrequencyCountdown: 10},
		ClientID: "vrxlink-controller",
		Client:   bus,
		Options:  opts,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := c.OnOptionSet(race.OptionLapHeader, "L"); err != nil {
		t.Errorf("valid option rejected: %v", err)
	}
	if err := c.OnOptionSet("unrelated_option", "%"); err != nil {
		t.Errorf("unrelated option validated: %v", err)
	}

	err = c.OnOptionSet(race.OptionPositionHeader, "%")
	if !errors.Is(err, ErrReservedCharacter) {
		t.Fatalf("checksum glyph error = %v", err)
	}
	if got := opts.Option(race.OptionPositionHeader, "unset"); got != "" {
		t.Errorf("rejected option not reset: %q", got)
	}
}

func TestSetSeatNumber(t *testing.T) {
	bus := newFakeBus()
	c := newTestController(t, bus)

	current := 1
	if err := c.SetSeatNumber(2, &current, ""); err != nil {
		t.Fatalf("seat move error = %v", err)
	}
	if got := bus.sentTo("vrx/cmd/seat/1"); len(got) != 1 || got[0] != `{"seat":"2"}` {
		t.Errorf("seat move publish = %v", got)
	}

	if err := c.SetSeatNumber(3, nil, "CV2-9"); err != nil {
		t.Fatalf("targeted move error = %v", err)
	}
	if got := bus.sentTo("vrx/cmd/device/CV2-9"); len(got) != 1 || got[0] != `{"seat":"3"}` {
		t.Errorf("targeted move publish = %v", got)
	}

	if err := c.SetSeatNumber(9, &current, ""); !errors.Is(err, seat.ErrSeatOutOfRange) {
		t.Errorf("out-of-range error = %v", err)
	}
	if err := c.SetSeatNumber(2, nil, ""); !errors.Is(err, seat.ErrMissingTarget) {
		t.Errorf("missing target error = %v", err)
	}
}

func TestShutdownSequence(t *testing.T) {
	bus := newFakeBus()
	c := newTestController(t, bus)

	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	want := []string{
		`{"user_msg":""}`,
		`{"osd_visibility":"E"}`,
		`{"wifi":2}`,
	}
	got := bus.sentTo("vrx/cmd/all")
	if len(got) != len(want) {
		t.Fatalf("shutdown publishes = %v", got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("shutdown[%d] = %s, want %s", i, got[i], w)
		}
	}
}

func TestUpdateStatus(t *testing.T) {
	bus := newFakeBus()
	c := newTestController(t, bus)

	if err := c.UpdateStatus(); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	got := bus.sentTo("vrx/cmd/all")
	if len(got) != 2 || got[0] != `{"lock":"?"}` || got[1] != "RQV" {
		t.Errorf("update status publishes = %v", got)
	}
}
