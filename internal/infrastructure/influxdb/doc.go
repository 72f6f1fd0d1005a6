// Package influxdb ships receiver telemetry (connectivity, readiness,
// video lock) to an InfluxDB v2 server.
//
// Telemetry is optional and fire-and-forget: writes are batched and
// non-blocking, and a failed write never touches the receiver control
// path.
package influxdb
