// Package controller dispatches between the race timer and the receiver
// fleet.
//
// Inbound, it subscribes to the receiver presence and response topics
// and feeds the device registry. Outbound, it translates race lifecycle
// events into seat and broadcast commands. One controller may drive a
// given network's receivers at a time.
package controller
