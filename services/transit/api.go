package transit

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// API exposes the hub's routes and sensors over HTTP.
type API struct {
	logger *zap.Logger
	hub    *Hub
}

// NewAPI creates a new API backed by the supplied hub.
func NewAPI(logger *zap.Logger, hub *Hub) *API {
	return &API{
		logger: logger,
		hub:    hub,
	}
}

// NewApp creates a fiber app with the API registered under /api.
func NewApp(logger *zap.Logger, hub *Hub) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(requestLogger(logger))

	NewAPI(logger, hub).Register(app.Group("/api"))
	return app
}

// Register adds the API's handlers to the supplied router.
func (a *API) Register(router fiber.Router) {
	router.Get("/routes", a.listRoutes)
	router.Get("/routes/:id", a.getRoute)
	router.Get("/routes/:id/snapshot", a.getSnapshot)
	router.Post("/routes/:id/refresh", a.refreshRoute)

	router.Get("/sensors", a.listSensors)
	router.Get("/sensors/:id", a.getSensor)
}

func (a *API) listRoutes(c *fiber.Ctx) error {
	return c.JSON(a.hub.Routes())
}

func (a *API) getRoute(c *fiber.Ctx) error {
	rs, err := a.hub.Route(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(rs)
}

func (a *API) getSnapshot(c *fiber.Ctx) error {
	coord, err := a.hub.Coordinator(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(coord.CurrentSnapshot())
}

func (a *API) refreshRoute(c *fiber.Ctx) error {
	coord, err := a.hub.Coordinator(c.Params("id"))
	if err != nil {
		return err
	}

	snap, err := coord.Refresh(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(snap)
}

func (a *API) listSensors(c *fiber.Ctx) error {
	return c.JSON(a.hub.ListSensors())
}

func (a *API) getSensor(c *fiber.Ctx) error {
	ss, err := a.hub.GetSensor(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(ss)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	switch {
	case errors.Is(err, ErrRouteNotFound), errors.Is(err, ErrSensorNotFound):
		code = fiber.StatusNotFound
	case errors.As(err, &fe):
		code = fe.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				c.Status(fiber.StatusInternalServerError)
			}
		}

		code := c.Response().StatusCode()
		fields := []zap.Field{
			zap.Int("status", code),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Duration("latency", time.Since(start)),
		}

		switch {
		case code >= fiber.StatusInternalServerError:
			logger.Error("http request", append(fields, zap.Error(err))...)
		case code >= fiber.StatusBadRequest:
			logger.Info("http request", append(fields, zap.Error(err))...)
		default:
			logger.Debug("http request", fields...)
		}
		return nil
	}
}
