package transit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func receiveUpdates(t *testing.T, updates <-chan *Update, count int) []*Update {
	t.Helper()

	var ret []*Update
	for len(ret) < count {
		select {
		case u := <-updates:
			ret = append(ret, u)
		case <-time.After(time.Second):
			t.Fatalf("received %d of %d updates", len(ret), count)
		}
	}
	return ret
}

func TestHubAddRoute(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	c := newTestCoordinator(t, &mockFetcher{}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := h.Updates(ctx)

	require.NoError(t, h.AddRoute(ctx, c))

	added := receiveUpdates(t, updates, 2)
	for _, u := range added {
		assert.Equal(t, UpdateAdded, u.Action)
		assert.Equal(t, "tnsw-10101-20202", u.RouteID)
	}

	sensors := h.ListSensors()
	require.Len(t, sensors, 2)
	assert.Equal(t, "tnsw-10101-20202-0", sensors[0].ID)
	assert.Equal(t, "Home 1", sensors[0].Name)
	require.NotNil(t, sensors[0].Value)
	assert.Equal(t, 5, *sensors[0].Value)
	assert.Equal(t, "tnsw-10101-20202-1", sensors[1].ID)
	require.NotNil(t, sensors[1].Value)
	assert.Equal(t, 12, *sensors[1].Value)

	ss, err := h.GetSensor("tnsw-10101-20202-1")
	require.NoError(t, err)
	assert.Equal(t, 12, *ss.Value)

	rs, err := h.Route("tnsw-10101-20202")
	require.NoError(t, err)
	assert.Equal(t, "ready", rs.State)
	assert.Equal(t, []string{"tnsw-10101-20202-0", "tnsw-10101-20202-1"}, rs.SensorIDs)
	assert.NotNil(t, rs.UpdatedAt)
	assert.Empty(t, rs.LastError)

	_, err = c.Refresh(ctx)
	require.NoError(t, err)

	changed := receiveUpdates(t, updates, 2)
	for _, u := range changed {
		assert.Equal(t, UpdateChanged, u.Action)
	}
	assert.Len(t, h.ListSensors(), 2)
}

func TestHubAddRouteTwice(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	c := newTestCoordinator(t, &mockFetcher{}, time.Minute)

	require.NoError(t, h.AddRoute(context.Background(), c))
	assert.ErrorIs(t, h.AddRoute(context.Background(), c), ErrRouteAlreadyAdded)
	assert.Len(t, h.Routes(), 1)
}

func TestHubDefersSensorsUntilFirstSuccess(t *testing.T) {
	mf := &mockFetcher{failOn: map[int]bool{2: true}}
	h := NewHub(zaptest.NewLogger(t))
	c := newTestCoordinator(t, mf, time.Minute)

	require.NoError(t, h.AddRoute(context.Background(), c))

	assert.Equal(t, StateUninitialized, c.State())
	assert.Empty(t, h.ListSensors())
	_, err := h.GetSensor("tnsw-10101-20202-0")
	assert.ErrorIs(t, err, ErrSensorNotFound)

	rs, err := h.Route("tnsw-10101-20202")
	require.NoError(t, err)
	assert.Equal(t, "uninitialized", rs.State)
	assert.NotEmpty(t, rs.LastError)
	assert.Nil(t, rs.UpdatedAt)
	assert.Empty(t, rs.SensorIDs)

	_, err = c.Refresh(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(h.ListSensors()) == 2
	}, time.Second, time.Millisecond)

	sensors := h.ListSensors()
	assert.Equal(t, 5, *sensors[0].Value)
	assert.Equal(t, 12, *sensors[1].Value)
}

func TestHubRemoveRoute(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	c := newTestCoordinator(t, &mockFetcher{}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := h.Updates(ctx)

	require.NoError(t, h.AddRoute(ctx, c))
	receiveUpdates(t, updates, 2)

	require.NoError(t, h.RemoveRoute("tnsw-10101-20202"))
	removed := receiveUpdates(t, updates, 2)
	for _, u := range removed {
		assert.Equal(t, UpdateRemoved, u.Action)
	}

	assert.Empty(t, h.ListSensors())
	assert.Empty(t, h.Routes())
	assert.ErrorIs(t, h.RemoveRoute("tnsw-10101-20202"), ErrRouteNotFound)

	_, err := h.Coordinator("tnsw-10101-20202")
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestHubAddRoutes(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))

	work := homeRoute
	work.Name = "Work"
	work.StopID = "20202"
	work.DestinationStopID = "10101"

	cs := []*Coordinator{
		newTestCoordinator(t, &mockFetcher{}, time.Minute),
		NewCoordinator(zaptest.NewLogger(t), &mockFetcher{}, work, testAPIKey, time.Minute),
	}
	require.NoError(t, h.AddRoutes(context.Background(), cs))

	routes := h.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, "tnsw-10101-20202", routes[0].ID)
	assert.Equal(t, "tnsw-20202-10101", routes[1].ID)
	assert.Len(t, h.ListSensors(), 4)

	err := h.AddRoutes(context.Background(), cs[:1])
	assert.ErrorIs(t, err, ErrRouteAlreadyAdded)
}

func TestHubUpdatesClosesOnCancel(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	updates := h.Updates(ctx)
	cancel()

	select {
	case _, ok := <-updates:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("updates not closed")
	}
}

func TestHubUpdatesHoldsAFullRefresh(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))

	route := homeRoute
	route.NumTrips = 15
	c := NewCoordinator(zaptest.NewLogger(t), platformFetcher{}, route, testAPIKey, time.Minute)
	require.NoError(t, h.AddRoute(context.Background(), c))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := h.Updates(ctx)

	_, err := c.Refresh(ctx)
	require.NoError(t, err)

	// Returns once every update for the refresh has been sent, whether by this call or the route's watcher.
	h.routesMutex.Lock()
	hr := h.routes[route.ID()]
	h.routesMutex.Unlock()
	h.publish(hr)

	changed := receiveUpdates(t, updates, 15)
	for idx, u := range changed {
		assert.Equal(t, UpdateChanged, u.Action)
		assert.Equal(t, idx, u.Sensor.Index)
	}
}
