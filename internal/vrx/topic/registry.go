package topic

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by Resolve. These indicate programmer error in command
// wiring, not runtime conditions: every command name and target kind is
// fixed at compile time, so hitting one of these in production is a bug.
var (
	// ErrUnknownCommand is returned when a command name is not registered.
	ErrUnknownCommand = errors.New("topic: unknown command")

	// ErrBadTargetKind is returned when the supplied target does not match
	// the placeholder arity of the command's template.
	ErrBadTargetKind = errors.New("topic: target kind does not match command template")
)

// TargetKind describes what a topic template addresses.
type TargetKind int

// TargetKind values.
const (
	// TargetNone addresses a fixed topic with no placeholder.
	TargetNone TargetKind = iota
	// TargetAll addresses every receiver at once; no placeholder.
	TargetAll
	// TargetSeat templates carry one seat-index placeholder.
	TargetSeat
	// TargetDevice templates carry one receiver-serial placeholder.
	TargetDevice
)

// String implements fmt.Stringer for log output.
func (k TargetKind) String() string {
	switch k {
	case TargetNone:
		return "none"
	case TargetAll:
		return "all"
	case TargetSeat:
		return "seat"
	case TargetDevice:
		return "device"
	default:
		return fmt.Sprintf("targetkind(%d)", int(k))
	}
}

// Command is a logical command or event name resolvable to a topic.
type Command string

// Registered commands.
const (
	// CommandAll carries receiver commands addressed to every device.
	CommandAll Command = "receiver_command_all"
	// CommandSeat carries receiver commands addressed to one seat.
	CommandSeat Command = "receiver_command_seat"
	// CommandDevice carries receiver commands addressed to one serial.
	CommandDevice Command = "receiver_command_device"
	// ResponseAll carries responses published by all receivers together.
	ResponseAll Command = "receiver_response_all"
	// ResponseSeat carries responses keyed by the responding seat.
	ResponseSeat Command = "receiver_response_seat"
	// ResponseDevice carries responses keyed by the responding serial.
	ResponseDevice Command = "receiver_response_device"
	// Connection carries broker presence announcements per client.
	Connection Command = "receiver_connection"
	// ControllerStatus is the controller's own retained presence topic.
	ControllerStatus Command = "controller_status"
)

// template pairs a topic format string with its expected target kind.
// Templates with a placeholder contain exactly one verb (%d for seats,
// %s for device serials).
type template struct {
	format string
	kind   TargetKind
}

// Registry resolves logical command names into concrete topic strings.
// It is a pure lookup table with no state; the zero value is ready to use.
type Registry struct{}

// templates is the static command-to-topic table.
var templates = map[Command]template{
	CommandAll:       {format: "vrx/cmd/all", kind: TargetAll},
	CommandSeat:      {format: "vrx/cmd/seat/%d", kind: TargetSeat},
	CommandDevice:    {format: "vrx/cmd/device/%s", kind: TargetDevice},
	ResponseAll:      {format: "vrx/resp/all", kind: TargetAll},
	ResponseSeat:     {format: "vrx/resp/seat/%d", kind: TargetSeat},
	ResponseDevice:   {format: "vrx/resp/device/%s", kind: TargetDevice},
	Connection:       {format: "vrx/conn/%s", kind: TargetDevice},
	ControllerStatus: {format: "vrx/controller/status", kind: TargetNone},
}

// Resolve produces the topic string for a command and target.
//
// The target's type must match the command's placeholder:
//   - TargetNone / TargetAll: target must be nil
//   - TargetSeat: target must be an int seat index
//   - TargetDevice: target must be a non-empty string serial
//
// Returns ErrUnknownCommand for unregistered commands and ErrBadTargetKind
// when the kind or target type does not match the template.
func (Registry) Resolve(cmd Command, kind TargetKind, target any) (string, error) {
	tmpl, ok := templates[cmd]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	if tmpl.kind != kind {
		return "", fmt.Errorf("%w: command %q expects %s, got %s", ErrBadTargetKind, cmd, tmpl.kind, kind)
	}

	switch kind {
	case TargetNone, TargetAll:
		if target != nil {
			return "", fmt.Errorf("%w: command %q takes no target value", ErrBadTargetKind, cmd)
		}
		return tmpl.format, nil

	case TargetSeat:
		seat, ok := target.(int)
		if !ok {
			return "", fmt.Errorf("%w: command %q needs an int seat, got %T", ErrBadTargetKind, cmd, target)
		}
		return fmt.Sprintf(tmpl.format, seat), nil

	case TargetDevice:
		serial, ok := target.(string)
		if !ok || serial == "" {
			return "", fmt.Errorf("%w: command %q needs a device serial, got %T", ErrBadTargetKind, cmd, target)
		}
		return fmt.Sprintf(tmpl.format, serial), nil

	default:
		return "", fmt.Errorf("%w: %s", ErrBadTargetKind, kind)
	}
}

// SubscribePattern returns the single-level wildcard subscription pattern
// for a placeholder command, or the fixed topic for placeholder-free ones.
func (Registry) SubscribePattern(cmd Command) (string, error) {
	tmpl, ok := templates[cmd]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}

	switch tmpl.kind {
	case TargetSeat:
		return strings.Replace(tmpl.format, "%d", "+", 1), nil
	case TargetDevice:
		return strings.Replace(tmpl.format, "%s", "+", 1), nil
	default:
		return tmpl.format, nil
	}
}
