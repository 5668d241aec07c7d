package timezone

import "time"

// duty rosters roll over on Turkish wall-clock time, so date keys must be
// computed in a fixed UTC+3 offset regardless of where the host machine
// thinks it lives. a named tzdata zone is deliberately avoided here, the
// source always publishes against the fixed offset.
var Location = time.FixedZone("UTC+3", 3*60*60)

func Now() time.Time {
	return time.Now().In(Location)
}
