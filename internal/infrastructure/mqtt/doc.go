// Package mqtt wraps the Eclipse Paho MQTT client for VRxLink.
//
// It provides connection lifecycle management with Last Will and Testament
// presence on the controller's connection topic, automatic re-subscription
// after reconnects, panic-recovering message handlers, and validated
// publish/subscribe operations.
//
// The wrapper is transport only: topic construction lives in
// internal/vrx/topic and payload encoding in internal/vrx/seat.
package mqtt
