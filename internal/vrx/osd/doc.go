// Package osd turns race results into the short display strings pilots
// see in their goggles.
//
// Formatting is pure: Build consumes a leaderboard snapshot and returns
// strings; publishing them is the dispatcher's job.
package osd
