package tripplanner

// NotAvailable is shown for any trip field which has no value yet.
const NotAvailable = "n/a"

// TransportType is the mode of transport serving a trip leg.
type TransportType string

// The set of transport types the trip planner reports.
const (
	TransportTypeTrain     TransportType = "Train"
	TransportTypeMetro     TransportType = "Metro"
	TransportTypeLightrail TransportType = "Lightrail"
	TransportTypeBus       TransportType = "Bus"
	TransportTypeCoach     TransportType = "Coach"
	TransportTypeFerry     TransportType = "Ferry"
	TransportTypeSchoolbus TransportType = "Schoolbus"
)

// productClasses maps the trip planner's product class onto a transport type.
// Walking and cycling legs have no entry.
var productClasses = map[int]TransportType{
	1:  TransportTypeTrain,
	2:  TransportTypeMetro,
	4:  TransportTypeLightrail,
	5:  TransportTypeBus,
	7:  TransportTypeCoach,
	9:  TransportTypeFerry,
	11: TransportTypeSchoolbus,
}

// Trip is a single scheduled departure from an origin towards a destination.
// A trip is never modified once it has been handed out by the client.
type Trip struct {
	Due                 int           `json:"due" csv:"due"`
	OriginStopID        string        `json:"origin_stop_id" csv:"origin_stop_id"`
	OriginName          string        `json:"origin_name" csv:"origin_name"`
	DepartureTime       string        `json:"departure_time" csv:"departure_time"`
	DestinationStopID   string        `json:"destination_stop_id" csv:"destination_stop_id"`
	DestinationName     string        `json:"destination_name" csv:"destination_name"`
	ArrivalTime         string        `json:"arrival_time" csv:"arrival_time"`
	OriginTransportType TransportType `json:"origin_transport_type" csv:"origin_transport_type"`
	OriginTransportName string        `json:"origin_transport_name" csv:"origin_transport_name"`
	OriginLineName      string        `json:"origin_line_name" csv:"origin_line_name"`
	OriginLineNameShort string        `json:"origin_line_name_short" csv:"origin_line_name_short"`
	Changes             int           `json:"changes" csv:"changes"`
	Occupancy           string        `json:"occupancy" csv:"occupancy"`
	RealTimeTripID      string        `json:"real_time_trip_id" csv:"real_time_trip_id"`
	Latitude            string        `json:"latitude" csv:"latitude"`
	Longitude           string        `json:"longitude" csv:"longitude"`
}

// PlaceholderTrip returns a trip with every display field set to NotAvailable.
func PlaceholderTrip() *Trip {
	return &Trip{
		OriginStopID:        NotAvailable,
		OriginName:          NotAvailable,
		DepartureTime:       NotAvailable,
		DestinationStopID:   NotAvailable,
		DestinationName:     NotAvailable,
		ArrivalTime:         NotAvailable,
		OriginTransportType: NotAvailable,
		OriginTransportName: NotAvailable,
		OriginLineName:      NotAvailable,
		OriginLineNameShort: NotAvailable,
		Occupancy:           NotAvailable,
		RealTimeTripID:      NotAvailable,
		Latitude:            NotAvailable,
		Longitude:           NotAvailable,
	}
}

func valueOrNotAvailable(v string) string {
	if len(v) < 1 {
		return NotAvailable
	}
	return v
}
