package transit

import (
	"go.uber.org/zap"
)

// UpdateBufferSize is the number of updates a single refresh of every route publishes.
func UpdateBufferSize(routes []RouteConfig) int {
	size := 0
	for _, route := range routes {
		size += route.NumTrips
	}
	return size
}

// LogUpdates logs each sensor update until the channel is closed.
func LogUpdates(logger *zap.Logger, updates <-chan *Update) {
	for u := range updates {
		fields := []zap.Field{
			zap.String("action", u.Action.String()),
			zap.String("route_id", u.RouteID),
			zap.String("sensor_id", u.Sensor.ID),
		}
		if u.Sensor.Value != nil {
			fields = append(fields, zap.Int("value", *u.Sensor.Value))
		}

		if u.Action == UpdateChanged {
			logger.Debug("sensor updated", fields...)
		} else {
			logger.Info("sensor updated", fields...)
		}
	}
}
