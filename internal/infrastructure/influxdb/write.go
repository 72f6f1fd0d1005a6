package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteReceiverStatus records one receiver's connectivity and readiness
// as a telemetry point. Booleans are written as 0/1 so dashboards can
// graph uptime directly.
func (c *Client) WriteReceiverStatus(deviceID string, connected, ready, videoLock bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"receiver_status",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"connected":  boolToInt(connected),
			"ready":      boolToInt(ready),
			"video_lock": boolToInt(videoLock),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSeatFrequency records a seat's frequency assignment.
func (c *Client) WriteSeatFrequency(seat int, frequency int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"seat_frequency",
		map[string]string{
			"seat": strconv.Itoa(seat),
		},
		map[string]interface{}{
			"frequency_mhz": frequency,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point for measurements the helpers don't
// cover.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
