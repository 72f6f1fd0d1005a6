package clearview

// Command vocabulary shared by ClearView 2.0 receivers. Values here mirror
// the receiver firmware's communication spec; changing them breaks every
// deployed receiver, so treat them as wire constants.

// OSD visibility states. "D" hides all overlay elements except the user
// message; "E" restores them.
const (
	OSDVisibilityHidden  = "D"
	OSDVisibilityEnabled = "E"
)

// Status request command codes published to a receiver's command topic.
// Static status covers identity fields (name, versions, device type);
// variable status covers fields that change mid-session (seat, lock,
// video format).
const (
	RequestStaticStatus   = "RQS"
	RequestVariableStatus = "RQV"
)

// MessageChecksum is the character the receiver firmware reserves as a
// user-message checksum delimiter. It must never appear in configurable
// OSD prefix glyphs.
const MessageChecksum = "%"

// UserMessageMaxLen is the longest user message a receiver renders.
// Longer messages are truncated by the sender rather than garbled by the
// firmware.
const UserMessageMaxLen = 48

// BroadcastID is the wildcard receiver identity understood by all devices.
const BroadcastID = "*"

// WifiMode selects the receiver's WiFi radio behaviour.
type WifiMode int

// WifiMode values.
const (
	WifiModeOff WifiMode = iota
	WifiModeStation
	WifiModeAccessPoint
)

// Camera type codes reported in the first character of a lock status.
const (
	CameraNTSC = "N"
	CameraPAL  = "P"
	CameraAuto = "A"
)

// VideoLocked is the lock flag character in the third position of a
// receiver's 3-character lock report.
const VideoLocked = "L"
