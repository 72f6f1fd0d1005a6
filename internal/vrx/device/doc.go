// Package device maintains the live registry of wireless OSD receivers.
//
// Devices appear when they announce themselves on their connection topic
// and progress through a simple lifecycle: announced, ready (first valid
// status merged), configured (seat settings pushed). The registry is
// append-only; a receiver that drops off the network keeps its learned
// state for when it returns.
package device
