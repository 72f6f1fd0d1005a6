// Package race defines the narrow interface between VRxLink and the race
// timing engine: win conditions, ranked results snapshots, option and
// language accessors, and the shared time display formatting.
//
// The timing engine is an external collaborator; nothing in this package
// computes results.
package race
