// Package config loads and validates VRxLink configuration.
//
// Configuration is read from a YAML file, overlaid with VRXLINK_*
// environment variables, and validated. Hard errors (broken broker
// settings) abort startup; receiver-control keys fall back to defaults
// with warnings instead, so a misconfigured vrx section never prevents
// the timer from running.
package config
