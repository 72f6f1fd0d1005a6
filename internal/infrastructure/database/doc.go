// Package database manages the SQLite connection backing the device
// event journal. The journal is optional; when database.enabled is false
// nothing in this package runs.
package database
