package transit

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rmrobinson/tnsw/services/transit/tripplanner"
	"go.uber.org/zap"
)

// DefaultMaxRetries is the number of times a failed trip fetch is retried.
const DefaultMaxRetries = 2

// RetryingFetcher retries failed fetches with exponential backoff.
// Requests that can't succeed on a retry, such as a missing trip, fail immediately.
type RetryingFetcher struct {
	logger     *zap.Logger
	fetcher    Fetcher
	maxRetries uint64

	newBackOff func() backoff.BackOff
}

// NewRetryingFetcher wraps the supplied fetcher.
func NewRetryingFetcher(logger *zap.Logger, fetcher Fetcher, maxRetries int) *RetryingFetcher {
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &RetryingFetcher{
		logger:     logger,
		fetcher:    fetcher,
		maxRetries: uint64(maxRetries),
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// GetTrip implements Fetcher.
func (rf *RetryingFetcher) GetTrip(ctx context.Context, originStopID string, destinationStopID string, apiKey string, waitMinutes int) (*tripplanner.Trip, error) {
	var trip *tripplanner.Trip

	op := func() error {
		t, err := rf.fetcher.GetTrip(ctx, originStopID, destinationStopID, apiKey, waitMinutes)
		if err != nil {
			if errors.Is(err, tripplanner.ErrNoTripFound) || errors.Is(err, tripplanner.ErrInvalidRequest) {
				return backoff.Permanent(err)
			}
			return err
		}

		trip = t
		return nil
	}

	notify := func(err error, next time.Duration) {
		rf.logger.Info("trip fetch failed, retrying",
			zap.String("origin_stop_id", originStopID),
			zap.String("destination_stop_id", destinationStopID),
			zap.Duration("next_attempt_in", next),
			zap.Error(err),
		)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(rf.newBackOff(), rf.maxRetries), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}

	return trip, nil
}
