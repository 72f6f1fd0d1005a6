// Package clearview holds the ClearView 2.0 receiver communication spec:
// command codes, OSD visibility states, reserved characters and the
// frequency-to-band/channel codec used when tuning receivers.
package clearview
