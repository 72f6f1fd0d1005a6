// Package topic maps logical receiver command and event names to MQTT
// topic strings.
//
// Every publish in VRxLink goes through Resolve, which checks that the
// supplied target matches the command template's placeholder arity.
// Mismatches are programmer errors surfaced as ErrUnknownCommand and
// ErrBadTargetKind rather than malformed topics on the wire.
package topic
