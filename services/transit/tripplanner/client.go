package tripplanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the Transport for NSW open data API host.
	DefaultBaseURL = "https://api.transport.nsw.gov.au"
	// DefaultTimeout bounds a single request to the API.
	DefaultTimeout = 10 * time.Second

	tripPath     = "/v1/tp/trip"
	timezoneName = "Australia/Sydney"
	dateFormat   = "20060102"
	timeFormat   = "1504"
)

var (
	// ErrFetchFailed is matched by every error returned from GetTrip.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrNoTripFound is returned if no journey departs at or after the requested time.
	ErrNoTripFound = errors.New("no trip found")
	// ErrInvalidRequest is returned if a stop ID or API key is missing, or the wait time is negative.
	ErrInvalidRequest = errors.New("invalid trip request")
	// ErrUnexpectedStatus is returned if the API responds with a non-OK status code.
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

// FetchError is returned for any failure retrieving a trip.
type FetchError struct {
	OriginStopID      string
	DestinationStopID string
	Err               error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching trip from %s to %s: %v", e.OriginStopID, e.DestinationStopID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports every FetchError as ErrFetchFailed.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

// Client retrieves trips from the Transport for NSW trip planner.
// It performs no retries; callers that want them wrap the client.
type Client struct {
	logger     *zap.Logger
	baseURL    string
	httpClient *http.Client
	loc        *time.Location
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithClock replaces the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new trip planner client.
func NewClient(logger *zap.Logger, opts ...Option) *Client {
	loc, err := time.LoadLocation(timezoneName)
	if err != nil {
		logger.Info("unable to load timezone, using UTC",
			zap.String("timezone", timezoneName),
			zap.Error(err),
		)
		loc = time.UTC
	}

	c := &Client{
		logger:     logger,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		loc:        loc,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetTrip returns the next trip from the origin to the destination which departs
// at least waitMinutes from now.
func (c *Client) GetTrip(ctx context.Context, originStopID string, destinationStopID string, apiKey string, waitMinutes int) (*Trip, error) {
	if len(originStopID) < 1 || len(destinationStopID) < 1 || len(apiKey) < 1 || waitMinutes < 0 {
		return nil, &FetchError{originStopID, destinationStopID, ErrInvalidRequest}
	}

	logger := c.logger.With(
		zap.String("origin_stop_id", originStopID),
		zap.String("destination_stop_id", destinationStopID),
		zap.Int("wait_minutes", waitMinutes),
	)

	now := c.now().In(c.loc)
	when := now.Add(time.Duration(waitMinutes) * time.Minute)

	params := url.Values{}
	params.Set("outputFormat", "rapidJSON")
	params.Set("coordOutputFormat", "EPSG:4326")
	params.Set("depArrMacro", "dep")
	params.Set("itdDate", when.Format(dateFormat))
	params.Set("itdTime", when.Format(timeFormat))
	params.Set("type_origin", "any")
	params.Set("name_origin", originStopID)
	params.Set("type_destination", "any")
	params.Set("name_destination", destinationStopID)
	params.Set("TfNSWTR", "true")

	body, err := c.getPath(ctx, tripPath, params, apiKey)
	if err != nil {
		logger.Warn("error retrieving trip",
			zap.Error(err),
		)
		return nil, &FetchError{originStopID, destinationStopID, err}
	}

	resp := &tripResponse{}
	if err := json.Unmarshal(body, resp); err != nil {
		logger.Warn("error unmarshaling trip body",
			zap.Error(err),
		)
		return nil, &FetchError{originStopID, destinationStopID, err}
	}

	trip, err := c.selectTrip(resp, now, when)
	if err != nil {
		logger.Info("no applicable trip in response",
			zap.Int("journey_count", len(resp.Journeys)),
			zap.Error(err),
		)
		return nil, &FetchError{originStopID, destinationStopID, err}
	}

	c.locateVehicle(ctx, apiKey, trip)
	return trip, nil
}

// selectTrip picks the first journey departing at or after when.
func (c *Client) selectTrip(resp *tripResponse, now time.Time, when time.Time) (*Trip, error) {
	for idx := range resp.Journeys {
		j := &resp.Journeys[idx]

		first := j.firstTransportLeg()
		if first == nil {
			continue
		}

		departure, err := time.Parse(time.RFC3339, first.Origin.departureTime())
		if err != nil {
			c.logger.Debug("skipping journey with unparseable departure",
				zap.String("departure_time", first.Origin.departureTime()),
				zap.Error(err),
			)
			continue
		}
		if departure.Before(when) {
			continue
		}

		last := &j.Legs[len(j.Legs)-1]

		due := int(departure.Sub(now) / time.Minute)
		if due < 0 {
			due = 0
		}

		trip := PlaceholderTrip()
		trip.Due = due
		trip.OriginStopID = valueOrNotAvailable(first.Origin.ID)
		trip.OriginName = valueOrNotAvailable(first.Origin.Name)
		trip.DepartureTime = departure.In(c.loc).Format(time.RFC3339)
		trip.DestinationStopID = valueOrNotAvailable(last.Destination.ID)
		trip.DestinationName = valueOrNotAvailable(last.Destination.Name)
		if arrival, err := time.Parse(time.RFC3339, last.Destination.arrivalTime()); err == nil {
			trip.ArrivalTime = arrival.In(c.loc).Format(time.RFC3339)
		}
		trip.OriginTransportType = productClasses[first.Transportation.Product.Class]
		trip.OriginTransportName = valueOrNotAvailable(first.Transportation.Product.Name)
		trip.OriginLineName = valueOrNotAvailable(first.Transportation.Name)
		trip.OriginLineNameShort = valueOrNotAvailable(first.Transportation.DisassembledName)
		trip.Changes = j.Interchanges
		trip.Occupancy = valueOrNotAvailable(first.Origin.Properties.Occupancy)
		trip.RealTimeTripID = valueOrNotAvailable(first.Transportation.Properties.RealtimeTripID)

		return trip, nil
	}

	return nil, ErrNoTripFound
}

func (c *Client) getPath(ctx context.Context, path string, params url.Values, apiKey string) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "apikey "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
