package tripplanner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/protobuf/proto"
)

const tripFixture = `{
	"version": "10.2.1.42",
	"journeys": [
		{
			"interchanges": 0,
			"legs": [
				{
					"origin": {"id": "2000338", "name": "Town Hall Station", "departureTimePlanned": "2024-03-03T21:00:00Z"},
					"destination": {"id": "10101", "name": "Park St", "arrivalTimePlanned": "2024-03-03T21:02:00Z"},
					"transportation": {"product": {"class": 100, "name": "footpath"}}
				},
				{
					"origin": {
						"id": "10101",
						"name": "Park St, Stand A",
						"departureTimePlanned": "2024-03-03T21:03:00Z",
						"departureTimeEstimated": "2024-03-03T21:05:00Z",
						"properties": {"occupancy": "MANY_SEATS"}
					},
					"destination": {"id": "20202", "name": "Bondi Junction", "arrivalTimePlanned": "2024-03-03T21:30:00Z"},
					"transportation": {
						"name": "Sydney Buses Network 333",
						"disassembledName": "333",
						"product": {"class": 5, "name": "Sydney Buses Network"},
						"operator": {"name": "Transit Systems"},
						"properties": {"RealtimeTripId": "1234-bus"}
					}
				}
			]
		},
		{
			"interchanges": 1,
			"legs": [
				{
					"origin": {"id": "10101", "name": "Town Hall Station, Platform 4", "departureTimePlanned": "2024-03-03T21:12:00Z"},
					"destination": {"id": "2000100", "name": "Central Station", "arrivalTimePlanned": "2024-03-03T21:16:00Z"},
					"transportation": {
						"name": "Sydney Trains Network T4",
						"disassembledName": "T4",
						"product": {"class": 1, "name": "Sydney Trains Network"}
					}
				},
				{
					"origin": {"id": "2000100", "name": "Central Station", "departureTimePlanned": "2024-03-03T21:20:00Z"},
					"destination": {"id": "20202", "name": "Bondi Junction Station", "arrivalTimePlanned": "2024-03-03T21:40:00Z"},
					"transportation": {"product": {"class": 1, "name": "Sydney Trains Network"}}
				}
			]
		}
	]
}`

func sydneyTime(t *testing.T, hour, min int) time.Time {
	loc, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)
	return time.Date(2024, time.March, 4, hour, min, 0, 0, loc)
}

func vehicleFixture(t *testing.T) []byte {
	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
		},
		Entity: []*gtfs.FeedEntity{
			{
				Id: proto.String("1"),
				Vehicle: &gtfs.VehiclePosition{
					Trip:     &gtfs.TripDescriptor{TripId: proto.String("other-trip")},
					Position: &gtfs.Position{Latitude: proto.Float32(-34), Longitude: proto.Float32(150)},
				},
			},
			{
				Id: proto.String("2"),
				Vehicle: &gtfs.VehiclePosition{
					Trip:     &gtfs.TripDescriptor{TripId: proto.String("1234-bus")},
					Position: &gtfs.Position{Latitude: proto.Float32(-33.8731), Longitude: proto.Float32(151.2065)},
				},
			},
		},
	}

	body, err := proto.Marshal(feed)
	require.NoError(t, err)
	return body
}

type planner struct {
	t            *testing.T
	tripBody     string
	tripStatus   int
	vehicleBody  []byte
	lastQuery    map[string]string
	vehicleCalls int
}

func (p *planner) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/tp/trip", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(p.t, "apikey secret", r.Header.Get("Authorization"))

		p.lastQuery = map[string]string{}
		for k := range r.URL.Query() {
			p.lastQuery[k] = r.URL.Query().Get(k)
		}

		if p.tripStatus != 0 {
			w.WriteHeader(p.tripStatus)
			return
		}
		w.Write([]byte(p.tripBody))
	})
	mux.HandleFunc("/v1/gtfs/vehiclepos/buses", func(w http.ResponseWriter, r *http.Request) {
		p.vehicleCalls++
		if p.vehicleBody == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(p.vehicleBody)
	})
	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, baseURL string, now time.Time) *Client {
	return NewClient(zaptest.NewLogger(t),
		WithBaseURL(baseURL),
		WithTimeout(time.Second),
		WithClock(func() time.Time { return now }),
	)
}

func TestGetTripNextDeparture(t *testing.T) {
	p := &planner{t: t, tripBody: tripFixture, vehicleBody: vehicleFixture(t)}
	srv := p.server()
	defer srv.Close()

	c := newTestClient(t, srv.URL, sydneyTime(t, 8, 0))

	trip, err := c.GetTrip(context.Background(), "10101", "20202", "secret", 0)
	require.NoError(t, err)

	assert.Equal(t, &Trip{
		Due:                 5,
		OriginStopID:        "10101",
		OriginName:          "Park St, Stand A",
		DepartureTime:       "2024-03-04T08:05:00+11:00",
		DestinationStopID:   "20202",
		DestinationName:     "Bondi Junction",
		ArrivalTime:         "2024-03-04T08:30:00+11:00",
		OriginTransportType: TransportTypeBus,
		OriginTransportName: "Sydney Buses Network",
		OriginLineName:      "Sydney Buses Network 333",
		OriginLineNameShort: "333",
		Changes:             0,
		Occupancy:           "MANY_SEATS",
		RealTimeTripID:      "1234-bus",
		Latitude:            "-33.8731",
		Longitude:           "151.2065",
	}, trip)

	assert.Equal(t, "10101", p.lastQuery["name_origin"])
	assert.Equal(t, "20202", p.lastQuery["name_destination"])
	assert.Equal(t, "20240304", p.lastQuery["itdDate"])
	assert.Equal(t, "0800", p.lastQuery["itdTime"])
	assert.Equal(t, "rapidJSON", p.lastQuery["outputFormat"])
	assert.Equal(t, 1, p.vehicleCalls)
}

func TestGetTripWithWaitTime(t *testing.T) {
	p := &planner{t: t, tripBody: tripFixture}
	srv := p.server()
	defer srv.Close()

	c := newTestClient(t, srv.URL, sydneyTime(t, 8, 0))

	trip, err := c.GetTrip(context.Background(), "10101", "20202", "secret", 6)
	require.NoError(t, err)

	assert.Equal(t, 12, trip.Due)
	assert.Equal(t, TransportTypeTrain, trip.OriginTransportType)
	assert.Equal(t, "T4", trip.OriginLineNameShort)
	assert.Equal(t, 1, trip.Changes)
	assert.Equal(t, "Bondi Junction Station", trip.DestinationName)
	assert.Equal(t, NotAvailable, trip.Occupancy)
	assert.Equal(t, NotAvailable, trip.RealTimeTripID)
	assert.Equal(t, NotAvailable, trip.Latitude)
	assert.Equal(t, "0806", p.lastQuery["itdTime"])
	assert.Equal(t, 0, p.vehicleCalls)
}

func TestGetTripVehicleLookupFailureIsNotFatal(t *testing.T) {
	p := &planner{t: t, tripBody: tripFixture}
	srv := p.server()
	defer srv.Close()

	c := newTestClient(t, srv.URL, sydneyTime(t, 8, 0))

	trip, err := c.GetTrip(context.Background(), "10101", "20202", "secret", 0)
	require.NoError(t, err)
	assert.Equal(t, 5, trip.Due)
	assert.Equal(t, NotAvailable, trip.Latitude)
	assert.Equal(t, NotAvailable, trip.Longitude)
	assert.Equal(t, 1, p.vehicleCalls)
}

var getTripErrorTests = []struct {
	name        string
	body        string
	status      int
	origin      string
	wait        int
	expectedErr error
}{
	{
		name:        "no journey late enough",
		body:        tripFixture,
		origin:      "10101",
		wait:        30,
		expectedErr: ErrNoTripFound,
	},
	{
		name:        "empty response",
		body:        `{"journeys": []}`,
		origin:      "10101",
		expectedErr: ErrNoTripFound,
	},
	{
		name:        "server error",
		status:      http.StatusInternalServerError,
		origin:      "10101",
		expectedErr: ErrUnexpectedStatus,
	},
	{
		name:   "malformed body",
		body:   `{"journeys": [`,
		origin: "10101",
	},
	{
		name:        "missing origin",
		body:        tripFixture,
		origin:      "",
		expectedErr: ErrInvalidRequest,
	},
	{
		name:        "negative wait",
		body:        tripFixture,
		origin:      "10101",
		wait:        -1,
		expectedErr: ErrInvalidRequest,
	},
}

func TestGetTripErrors(t *testing.T) {
	for _, tt := range getTripErrorTests {
		t.Run(tt.name, func(t *testing.T) {
			p := &planner{t: t, tripBody: tt.body, tripStatus: tt.status}
			srv := p.server()
			defer srv.Close()

			c := newTestClient(t, srv.URL, sydneyTime(t, 8, 0))

			trip, err := c.GetTrip(context.Background(), tt.origin, "20202", "secret", tt.wait)
			assert.Nil(t, trip)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFetchFailed))

			var fetchErr *FetchError
			assert.True(t, errors.As(err, &fetchErr))
			if tt.expectedErr != nil {
				assert.True(t, errors.Is(err, tt.expectedErr))
			}
		})
	}
}

func TestGetTripNetworkFailure(t *testing.T) {
	p := &planner{t: t, tripBody: tripFixture}
	srv := p.server()
	srv.Close()

	c := newTestClient(t, srv.URL, sydneyTime(t, 8, 0))

	_, err := c.GetTrip(context.Background(), "10101", "20202", "secret", 0)
	assert.True(t, errors.Is(err, ErrFetchFailed))
}
