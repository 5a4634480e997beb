/*
Package estimate derives human-oriented chain telemetry from the current
block height and the difficulty-adjustment snapshot served by the mempool
API: retarget progress and the halving schedule, each with a wall-clock
estimate when the data allows one.

All computations here are pure; callers supply the reference time.
*/
package estimate

import (
	"fmt"
	"time"
)

// Unknown is the sentinel for time estimates that cannot be computed from
// the available data.
const Unknown = "Unknown"

// TimeUntil formats the interval between now and target with day/hour/minute
// granularity (floored). Past targets get an "ago" suffix. The short form
// reads "5d 2h 30min"; the long form spells the units out, pluralized.
func TimeUntil(target, now time.Time, short bool) string {
	d := target.Sub(now)
	past := d < 0
	if past {
		d = -d
	}

	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)

	var s string
	if short {
		s = fmt.Sprintf("%dd %dh %dmin", days, hours, minutes)
	} else {
		s = fmt.Sprintf("%d %s %d %s %d %s",
			days, plural(days, "day"),
			hours, plural(hours, "hour"),
			minutes, plural(minutes, "minute"))
	}
	if past {
		return s + " ago"
	}
	return s
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
