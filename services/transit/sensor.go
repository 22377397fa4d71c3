package transit

import (
	"fmt"
	"time"

	"github.com/rmrobinson/tnsw/services/transit/tripplanner"
)

const (
	// Unit is the unit every sensor value is reported in.
	Unit = "min"
	// Attribution credits the data source.
	Attribution = "Data provided by Transport NSW"

	defaultIcon = "mdi:clock"
)

// Attribute names, in the order they are reported.
const (
	AttrDue                 = "due"
	AttrStopID              = "stop_id"
	AttrOriginName          = "origin_name"
	AttrDepartureTime       = "departure_time"
	AttrDestinationStopID   = "destination_stop_id"
	AttrDestinationName     = "destination_name"
	AttrArrivalTime         = "arrival_time"
	AttrOriginTransportType = "origin_transport_type"
	AttrOriginTransportName = "origin_transport_name"
	AttrOriginLineName      = "origin_line_name"
	AttrOriginLineNameShort = "origin_line_name_short"
	AttrChanges             = "changes"
	AttrOccupancy           = "occupancy"
	AttrRealTimeTripID      = "real_time_trip_id"
	AttrLatitude            = "latitude"
	AttrLongitude           = "longitude"
)

var icons = map[tripplanner.TransportType]string{
	tripplanner.TransportTypeTrain:     "mdi:train",
	tripplanner.TransportTypeLightrail: "mdi:tram",
	tripplanner.TransportTypeBus:       "mdi:bus",
	tripplanner.TransportTypeCoach:     "mdi:bus",
	tripplanner.TransportTypeFerry:     "mdi:ferry",
	tripplanner.TransportTypeSchoolbus: "mdi:bus",
}

func iconFor(tt tripplanner.TransportType) string {
	if icon, ok := icons[tt]; ok {
		return icon
	}
	return defaultIcon
}

// tripAttributes reports the configured stop IDs rather than the trip's,
// which are usually the IDs of a specific platform or stand.
func tripAttributes(route RouteConfig, trip *tripplanner.Trip) map[string]interface{} {
	return map[string]interface{}{
		AttrDue:                 trip.Due,
		AttrStopID:              route.StopID,
		AttrOriginName:          trip.OriginName,
		AttrDepartureTime:       trip.DepartureTime,
		AttrDestinationStopID:   route.DestinationStopID,
		AttrDestinationName:     trip.DestinationName,
		AttrArrivalTime:         trip.ArrivalTime,
		AttrOriginTransportType: string(trip.OriginTransportType),
		AttrOriginTransportName: trip.OriginTransportName,
		AttrOriginLineName:      trip.OriginLineName,
		AttrOriginLineNameShort: trip.OriginLineNameShort,
		AttrChanges:             trip.Changes,
		AttrOccupancy:           trip.Occupancy,
		AttrRealTimeTripID:      trip.RealTimeTripID,
		AttrLatitude:            trip.Latitude,
		AttrLongitude:           trip.Longitude,
	}
}

// placeholderAttributes is reported before the route has any data.
func placeholderAttributes(route RouteConfig) map[string]interface{} {
	attrs := tripAttributes(route, tripplanner.PlaceholderTrip())
	attrs[AttrDue] = nil
	attrs[AttrChanges] = nil
	return attrs
}

// SensorState is a point in time view of a sensor.
type SensorState struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	RouteID     string                 `json:"route_id"`
	Index       int                    `json:"index"`
	Value       *int                   `json:"value"`
	Unit        string                 `json:"unit"`
	Icon        string                 `json:"icon"`
	Attribution string                 `json:"attribution"`
	Attributes  map[string]interface{} `json:"attributes"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

func (ss *SensorState) String() string {
	if ss.Value == nil {
		return fmt.Sprintf("%s: %s", ss.ID, tripplanner.NotAvailable)
	}
	return fmt.Sprintf("%s: %d %s", ss.ID, *ss.Value, ss.Unit)
}

// Sensor presents a single position in a route's snapshot.
// It holds no trip data of its own; every read goes to the coordinator's current snapshot.
type Sensor struct {
	c     *Coordinator
	index int
	id    string
	name  string
}

func newSensor(c *Coordinator, index int) *Sensor {
	route := c.Route()
	return &Sensor{
		c:     c,
		index: index,
		id:    fmt.Sprintf("%s-%d", route.ID(), index),
		name:  fmt.Sprintf("%s %d", route.Name, index+1),
	}
}

// ID is stable for a given origin, destination and position.
func (s *Sensor) ID() string {
	return s.id
}

// Name returns the display name.
func (s *Sensor) Name() string {
	return s.name
}

// Index returns the position in the snapshot this sensor reports.
func (s *Sensor) Index() int {
	return s.index
}

// Value returns the minutes until the trip departs, if there is a trip at this position.
func (s *Sensor) Value() (int, bool) {
	trip, ok := s.c.CurrentSnapshot().Trip(s.index)
	if !ok {
		return 0, false
	}
	return trip.Due, true
}

// Attributes returns the trip details for this position.
func (s *Sensor) Attributes() map[string]interface{} {
	trip, ok := s.c.CurrentSnapshot().Trip(s.index)
	if !ok {
		return placeholderAttributes(s.c.Route())
	}
	return tripAttributes(s.c.Route(), trip)
}

// Icon returns the icon for the trip's transport type.
func (s *Sensor) Icon() string {
	trip, ok := s.c.CurrentSnapshot().Trip(s.index)
	if !ok {
		return defaultIcon
	}
	return iconFor(trip.OriginTransportType)
}

// State projects the sensor from a single snapshot read.
func (s *Sensor) State() *SensorState {
	snap := s.c.CurrentSnapshot()

	state := &SensorState{
		ID:          s.id,
		Name:        s.name,
		RouteID:     snap.RouteID,
		Index:       s.index,
		Unit:        Unit,
		Icon:        defaultIcon,
		Attribution: Attribution,
		UpdatedAt:   snap.UpdatedAt,
	}

	trip, ok := snap.Trip(s.index)
	if !ok {
		state.Attributes = placeholderAttributes(s.c.Route())
		return state
	}

	due := trip.Due
	state.Value = &due
	state.Icon = iconFor(trip.OriginTransportType)
	state.Attributes = tripAttributes(s.c.Route(), trip)
	return state
}
