package transit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rmrobinson/tnsw/lib/stream"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

var (
	// ErrRouteAlreadyAdded is returned if the requested route already exists
	ErrRouteAlreadyAdded = errors.New("route already added")
	// ErrRouteNotFound is returned if the requested route ID could not be found
	ErrRouteNotFound = errors.New("route not found")
	// ErrSensorNotFound is returned if the requested sensor ID could not be found
	ErrSensorNotFound = errors.New("sensor not found")
)

// UpdateAction describes what happened to a sensor.
type UpdateAction int

const (
	// UpdateAdded is sent when a sensor is first created.
	UpdateAdded UpdateAction = iota
	// UpdateChanged is sent when a sensor's route has been refreshed.
	UpdateChanged
	// UpdateRemoved is sent when a sensor's route has been removed.
	UpdateRemoved
)

func (ua UpdateAction) String() string {
	switch ua {
	case UpdateAdded:
		return "added"
	case UpdateChanged:
		return "changed"
	case UpdateRemoved:
		return "removed"
	}
	return fmt.Sprintf("action(%d)", int(ua))
}

// Update is a change to a single sensor.
type Update struct {
	Action  UpdateAction
	RouteID string
	Sensor  *SensorState
}

func (u *Update) String() string {
	return fmt.Sprintf("%s %s", u.Action, u.Sensor)
}

// RouteStatus summarizes a route and the state of its refreshes.
type RouteStatus struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	StopID            string     `json:"stop_id"`
	DestinationStopID string     `json:"destination_stop_id"`
	NumTrips          int        `json:"num_trips"`
	State             string     `json:"state"`
	LastError         string     `json:"last_error,omitempty"`
	UpdatedAt         *time.Time `json:"updated_at"`
	SensorIDs         []string   `json:"sensor_ids"`
}

type hubRoute struct {
	// c owns the snapshot for this route
	c *Coordinator

	// sink receives the coordinator's snapshot updates
	sink *stream.Sink

	// mu guards the fields below, and serializes publishing for this route
	mu        sync.Mutex
	sensors   []*Sensor
	published *Snapshot
	removed   bool
}

func (hr *hubRoute) status() *RouteStatus {
	route := hr.c.Route()
	rs := &RouteStatus{
		ID:                route.ID(),
		Name:              route.Name,
		StopID:            route.StopID,
		DestinationStopID: route.DestinationStopID,
		NumTrips:          route.NumTrips,
		State:             hr.c.State().String(),
		SensorIDs:         []string{},
	}
	if err := hr.c.LastError(); err != nil {
		rs.LastError = err.Error()
	}
	if snap := hr.c.CurrentSnapshot(); !snap.IsSentinel() {
		updatedAt := snap.UpdatedAt
		rs.UpdatedAt = &updatedAt
	}

	hr.mu.Lock()
	for _, s := range hr.sensors {
		rs.SensorIDs = append(rs.SensorIDs, s.ID())
	}
	hr.mu.Unlock()

	return rs
}

// Hub manages the set of monitored routes and the sensors presenting them.
// Sensors for a route are only created once the route has data to present.
type Hub struct {
	logger       *zap.Logger
	updateSource *stream.Source

	routes      map[string]*hubRoute
	routesMutex sync.Mutex

	sensors      map[string]*Sensor
	sensorsMutex sync.Mutex
}

// NewHub creates a new hub with the supplied logger.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:       logger,
		updateSource: stream.NewSource(logger),
		routes:       map[string]*hubRoute{},
		sensors:      map[string]*Sensor{},
	}
}

// AddRoute registers the coordinator and performs its initial refresh.
// If the initial refresh fails the route is still added, but its sensors are
// not created until a later refresh succeeds.
func (h *Hub) AddRoute(ctx context.Context, c *Coordinator) error {
	routeID := c.Route().ID()
	logger := h.logger.With(zap.String("route_id", routeID))

	h.routesMutex.Lock()
	if _, found := h.routes[routeID]; found {
		h.routesMutex.Unlock()
		return ErrRouteAlreadyAdded
	}

	hr := &hubRoute{
		c:    c,
		sink: c.Updates(),
	}
	h.routes[routeID] = hr
	h.routesMutex.Unlock()

	go func(h *Hub, hr *hubRoute) {
		for msg := range hr.sink.Messages() {
			if _, ok := msg.(*SnapshotUpdate); !ok {
				logger.Info("unexpected message on route stream, ignoring",
					zap.String("msg", msg.String()),
				)
				continue
			}

			h.publish(hr)
		}
	}(h, hr)

	if _, err := c.Refresh(ctx); err != nil {
		logger.Warn("initial data not available, sensors will be created after the next successful refresh",
			zap.Error(err),
		)
		return nil
	}

	h.publish(hr)
	return nil
}

// AddRoutes adds each of the supplied coordinators, performing their initial refreshes concurrently.
func (h *Hub) AddRoutes(ctx context.Context, cs []*Coordinator) error {
	p := pool.New().WithErrors()
	for _, c := range cs {
		p.Go(func() error {
			if err := h.AddRoute(ctx, c); err != nil {
				return fmt.Errorf("route %s: %w", c.Route().ID(), err)
			}
			return nil
		})
	}
	return p.Wait()
}

// RemoveRoute stops tracking the specified route and removes its sensors.
// The coordinator itself is not stopped; that is left to whoever is running it.
func (h *Hub) RemoveRoute(id string) error {
	h.routesMutex.Lock()
	hr, found := h.routes[id]
	if !found {
		h.routesMutex.Unlock()
		return ErrRouteNotFound
	}
	delete(h.routes, id)
	h.routesMutex.Unlock()

	hr.sink.Close()

	hr.mu.Lock()
	defer hr.mu.Unlock()
	hr.removed = true

	h.sensorsMutex.Lock()
	for _, s := range hr.sensors {
		delete(h.sensors, s.ID())
	}
	h.sensorsMutex.Unlock()

	for _, s := range hr.sensors {
		h.updateSource.SendMessage(&Update{
			Action:  UpdateRemoved,
			RouteID: id,
			Sensor:  s.State(),
		})
	}
	hr.sensors = nil

	h.logger.Info("route removed",
		zap.String("route_id", id),
	)
	return nil
}

// Coordinator returns the coordinator for the specified route.
func (h *Hub) Coordinator(id string) (*Coordinator, error) {
	h.routesMutex.Lock()
	defer h.routesMutex.Unlock()

	if hr, found := h.routes[id]; found {
		return hr.c, nil
	}

	return nil, ErrRouteNotFound
}

// Routes returns the status of every route, ordered by ID.
func (h *Hub) Routes() []*RouteStatus {
	h.routesMutex.Lock()
	hrs := make([]*hubRoute, 0, len(h.routes))
	for _, hr := range h.routes {
		hrs = append(hrs, hr)
	}
	h.routesMutex.Unlock()

	resp := make([]*RouteStatus, 0, len(hrs))
	for _, hr := range hrs {
		resp = append(resp, hr.status())
	}

	sort.Slice(resp, func(i, j int) bool {
		return resp[i].ID < resp[j].ID
	})
	return resp
}

// Route returns the status of the specified route.
func (h *Hub) Route(id string) (*RouteStatus, error) {
	h.routesMutex.Lock()
	hr, found := h.routes[id]
	h.routesMutex.Unlock()

	if !found {
		return nil, ErrRouteNotFound
	}
	return hr.status(), nil
}

// ListSensors returns the current state of every sensor, ordered by ID.
func (h *Hub) ListSensors() []*SensorState {
	h.sensorsMutex.Lock()
	resp := make([]*SensorState, 0, len(h.sensors))
	for _, s := range h.sensors {
		resp = append(resp, s.State())
	}
	h.sensorsMutex.Unlock()

	sort.Slice(resp, func(i, j int) bool {
		return resp[i].ID < resp[j].ID
	})
	return resp
}

// GetSensor retrieves the current state of the specified sensor.
func (h *Hub) GetSensor(id string) (*SensorState, error) {
	h.sensorsMutex.Lock()
	defer h.sensorsMutex.Unlock()

	if s, found := h.sensors[id]; found {
		return s.State(), nil
	}

	return nil, ErrSensorNotFound
}

// Updates exposes the stream of sensor changes until the context is cancelled.
// The subscription buffers one refresh of every route added so far; a subscriber
// which falls further behind, or routes added after subscribing, can cause updates to be dropped.
func (h *Hub) Updates(ctx context.Context) <-chan *Update {
	return h.UpdatesSize(ctx, h.updateBufferSize())
}

// UpdatesSize is Updates with a buffer of the supplied number of updates.
// It allows subscribing before routes are added.
func (h *Hub) UpdatesSize(ctx context.Context, size int) <-chan *Update {
	ret := make(chan *Update)
	sink := h.updateSource.NewSinkSize(size)

	go func() {
		defer close(ret)
		defer sink.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-sink.Messages():
				if !ok {
					return
				}

				update, ok := u.(*Update)
				if !ok {
					panic("sensor update cast failed")
				}

				select {
				case ret <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ret
}

// updateBufferSize is the number of updates published by one refresh of every route.
func (h *Hub) updateBufferSize() int {
	h.routesMutex.Lock()
	defer h.routesMutex.Unlock()

	size := 0
	for _, hr := range h.routes {
		size += hr.c.Route().NumTrips
	}
	if size < stream.DefaultSinkBuffer {
		size = stream.DefaultSinkBuffer
	}
	return size
}

// Run refreshes every route currently added on its own schedule until the context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	h.routesMutex.Lock()
	cs := make([]*Coordinator, 0, len(h.routes))
	for _, hr := range h.routes {
		cs = append(cs, hr.c)
	}
	h.routesMutex.Unlock()

	p := pool.New().WithErrors()
	for _, c := range cs {
		p.Go(func() error {
			return c.Run(ctx)
		})
	}
	return p.Wait()
}

// publish reports the route's current snapshot to subscribers, creating the route's sensors if needed.
// A snapshot is only ever published once.
func (h *Hub) publish(hr *hubRoute) {
	hr.mu.Lock()
	defer hr.mu.Unlock()

	snap := hr.c.CurrentSnapshot()
	if hr.removed || snap.IsSentinel() || snap == hr.published {
		return
	}
	hr.published = snap

	route := hr.c.Route()
	action := UpdateChanged

	if hr.sensors == nil {
		action = UpdateAdded

		h.logger.Info("creating sensors",
			zap.String("route_id", route.ID()),
			zap.Int("sensor_count", route.NumTrips),
		)

		h.sensorsMutex.Lock()
		for idx := 0; idx < route.NumTrips; idx++ {
			s := newSensor(hr.c, idx)
			hr.sensors = append(hr.sensors, s)
			h.sensors[s.ID()] = s
		}
		h.sensorsMutex.Unlock()
	}

	for _, s := range hr.sensors {
		h.updateSource.SendMessage(&Update{
			Action:  action,
			RouteID: route.ID(),
			Sensor:  s.State(),
		})
	}
}
