package transit

import (
	"context"
	"fmt"

	"github.com/rmrobinson/tnsw/services/transit/tripplanner"
)

// Fetcher retrieves the next trip departing at least waitMinutes from now.
type Fetcher interface {
	GetTrip(ctx context.Context, originStopID string, destinationStopID string, apiKey string, waitMinutes int) (*tripplanner.Trip, error)
}

// BatchAbortedError is returned if any trip in a batch could not be retrieved.
// No partial batch is ever returned alongside it.
type BatchAbortedError struct {
	RouteID string
	Index   int
	Err     error
}

func (e *BatchAbortedError) Error() string {
	return fmt.Sprintf("route %s: trip %d: %v", e.RouteID, e.Index, e.Err)
}

// Unwrap returns the error of the failed fetch.
func (e *BatchAbortedError) Unwrap() error {
	return e.Err
}

// FetchTrips retrieves route.NumTrips successive trips for the route.
// Each fetch looks past the previous trip's due time by one minute so the
// trips returned are distinct and in departure order.
func FetchTrips(ctx context.Context, fetcher Fetcher, route RouteConfig, apiKey string) ([]*tripplanner.Trip, error) {
	trips := make([]*tripplanner.Trip, 0, route.NumTrips)

	wait := 0
	for idx := 0; idx < route.NumTrips; idx++ {
		trip, err := fetcher.GetTrip(ctx, route.StopID, route.DestinationStopID, apiKey, wait)
		if err != nil {
			return nil, &BatchAbortedError{
				RouteID: route.ID(),
				Index:   idx,
				Err:     err,
			}
		}

		trips = append(trips, trip)
		wait = trip.Due + 1
	}

	return trips, nil
}
