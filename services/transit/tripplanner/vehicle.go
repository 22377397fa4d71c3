package tripplanner

import (
	"context"
	"strconv"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

// vehiclePositionPaths are the GTFS-realtime vehicle position feeds per transport type.
var vehiclePositionPaths = map[TransportType]string{
	TransportTypeTrain:     "/v1/gtfs/vehiclepos/sydneytrains",
	TransportTypeMetro:     "/v2/gtfs/vehiclepos/metro",
	TransportTypeLightrail: "/v1/gtfs/vehiclepos/lightrail/innerwest",
	TransportTypeBus:       "/v1/gtfs/vehiclepos/buses",
	TransportTypeSchoolbus: "/v1/gtfs/vehiclepos/buses",
	TransportTypeFerry:     "/v1/gtfs/vehiclepos/ferries/sydneyferries",
}

// locateVehicle fills in the position of the vehicle serving the trip.
// The position is best effort; the trip keeps NotAvailable if it can't be found.
func (c *Client) locateVehicle(ctx context.Context, apiKey string, trip *Trip) {
	path, ok := vehiclePositionPaths[trip.OriginTransportType]
	if !ok || trip.RealTimeTripID == NotAvailable {
		return
	}

	logger := c.logger.With(
		zap.String("real_time_trip_id", trip.RealTimeTripID),
		zap.String("path", path),
	)

	body, err := c.getPath(ctx, path, nil, apiKey)
	if err != nil {
		logger.Debug("error retrieving vehicle positions",
			zap.Error(err),
		)
		return
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		logger.Debug("error unmarshaling vehicle positions",
			zap.Error(err),
		)
		return
	}

	latitude, longitude, found := vehiclePosition(feed, trip.RealTimeTripID)
	if !found {
		logger.Debug("vehicle not present in feed")
		return
	}

	trip.Latitude = latitude
	trip.Longitude = longitude
}

func vehiclePosition(feed *gtfs.FeedMessage, tripID string) (string, string, bool) {
	for _, entity := range feed.GetEntity() {
		vehicle := entity.GetVehicle()
		if vehicle == nil || vehicle.GetTrip().GetTripId() != tripID {
			continue
		}

		pos := vehicle.GetPosition()
		if pos == nil {
			continue
		}

		return strconv.FormatFloat(float64(pos.GetLatitude()), 'f', -1, 32),
			strconv.FormatFloat(float64(pos.GetLongitude()), 'f', -1, 32),
			true
	}

	return "", "", false
}
