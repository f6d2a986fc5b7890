package influxdb

import (
	"context"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-zigbee/internal/mgmt"
)

// MeasurementMgmt holds one point per state-changing management request.
const MeasurementMgmt = "zigbee_mgmt"

// EventPoint converts a management event into a point tagged with the
// site, event type and topic. The response status is always a field;
// numeric and boolean data entries become fields too, string entries
// become tags.
func EventPoint(site string, ev mgmt.Event) *write.Point {
	tags := map[string]string{
		"site":  site,
		"event": ev.Type,
		"topic": ev.Topic,
	}
	fields := map[string]any{
		"status": ev.Status,
	}
	for k, v := range ev.Data {
		switch x := v.(type) {
		case int, int64, uint8, uint16, uint32, uint64, float64, bool:
			fields[k] = x
		case string:
			tags[k] = x
		}
	}

	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return write.NewPoint(MeasurementMgmt, tags, fields, ts)
}

// Notify implements mgmt.Observer by queueing the event as a point.
func (c *Client) Notify(_ context.Context, ev mgmt.Event) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(EventPoint(c.site, ev))
}

var _ mgmt.Observer = (*Client)(nil)
