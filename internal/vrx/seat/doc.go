// Package seat addresses receivers by logical pilot position.
//
// A Seat publishes commands onto one seat's command topic; Broadcast
// publishes the same vocabulary to every receiver at once. Neither type
// knows which physical devices are listening; that mapping lives on the
// receivers themselves and in the device registry.
package seat
