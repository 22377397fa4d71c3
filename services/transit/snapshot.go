package transit

import (
	"fmt"
	"time"

	"github.com/rmrobinson/tnsw/services/transit/tripplanner"
)

// Snapshot is the most recently retrieved set of trips for a route.
// Snapshots are replaced wholesale and never modified once published.
type Snapshot struct {
	RouteID   string              `json:"route_id"`
	Trips     []*tripplanner.Trip `json:"trips"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func newSentinelSnapshot(routeID string) *Snapshot {
	return &Snapshot{
		RouteID: routeID,
	}
}

// IsSentinel is true for the placeholder snapshot held before the first successful refresh.
func (s *Snapshot) IsSentinel() bool {
	return s.UpdatedAt.IsZero()
}

// Trip returns the trip at the specified position, if present.
func (s *Snapshot) Trip(index int) (*tripplanner.Trip, bool) {
	if s.IsSentinel() || index < 0 || index >= len(s.Trips) {
		return nil, false
	}
	return s.Trips[index], true
}

// SnapshotUpdate is broadcast by a coordinator each time it publishes a new snapshot.
type SnapshotUpdate struct {
	RouteID  string
	Snapshot *Snapshot
}

func (su *SnapshotUpdate) String() string {
	return fmt.Sprintf("route %s refreshed with %d trips at %s",
		su.RouteID,
		len(su.Snapshot.Trips),
		su.Snapshot.UpdatedAt.Format(time.RFC3339),
	)
}
