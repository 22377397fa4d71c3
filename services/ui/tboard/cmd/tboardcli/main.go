package main

import (
	"context"
	"flag"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/rivo/tview"
	"github.com/rmrobinson/tnsw/services/transit"
	"github.com/rmrobinson/tnsw/services/ui/tboard/widget"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const sydneyTimezone = "Australia/Sydney"

func fetchSensors(addr string) ([]*transit.SensorState, error) {
	var sensors []*transit.SensorState

	code, _, errs := fiber.Get(addr + "/api/sensors").
		Timeout(5 * time.Second).
		Struct(&sensors)
	if err := multierr.Combine(errs...); err != nil {
		return nil, err
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", code)
	}

	return sensors, nil
}

func pollSensors(ctx context.Context, logger *zap.Logger, addr string, interval time.Duration, view *widget.Transit) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		sensors, err := fetchSensors(addr)
		if err != nil {
			logger.Warn("error retrieving sensors",
				zap.String("addr", addr),
				zap.Error(err),
			)
		} else {
			logger.Debug("sensors retrieved",
				zap.Int("sensor_count", len(sensors)),
			)
			view.Refresh(sensors)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func main() {
	var (
		addr     = flag.String("addr", "http://localhost:10105", "The transitd address to poll")
		interval = flag.Duration("interval", 15*time.Second, "How often to poll transitd")
		rows     = flag.Int("rows", 8, "The number of departures to show")
	)
	flag.Parse()

	app := tview.NewApplication()

	debugView := widget.NewDebug(app)
	logger := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(NewWidgetSink(debugView)),
		zap.DebugLevel,
	))

	loc, err := time.LoadLocation(sydneyTimezone)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sydneyTime := widget.NewClock(app, loc)
	go sydneyTime.Run(ctx)

	transitView := widget.NewTransit(app, *rows)
	go pollSensors(ctx, logger, *addr, *interval, transitView)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(sydneyTime, 4, 1, false).
		AddItem(transitView, *rows+2, 1, true).
		AddItem(debugView, 0, 1, false)
	if err := app.SetRoot(layout, true).SetFocus(layout).Run(); err != nil {
		panic(err)
	}
}
