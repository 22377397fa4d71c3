package widget

import (
	"context"
	"strings"
	"time"

	"github.com/gdamore/tcell"
	"github.com/rivo/tview"
)

const clockRefreshInterval = 250 * time.Millisecond

// zoneTitle names a timezone by its city, so Australia/Sydney becomes Sydney.
func zoneTitle(location *time.Location) string {
	name := location.String()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.ReplaceAll(name, "_", " ")
}

// clockText shows the date on the first line and the time with its zone abbreviation, such as AEDT, on the second.
func clockText(now time.Time) string {
	return now.Format("Mon 2 Jan") + "\n" + now.Format("15:04:05 MST")
}

// Clock is a widget showing the local time where the departures are.
type Clock struct {
	*tview.TextView

	app *tview.Application

	location *time.Location
}

// NewClock creates a new clock for the supplied timezone.
func NewClock(app *tview.Application, location *time.Location) *Clock {
	c := &Clock{
		TextView: tview.NewTextView(),
		app:      app,
		location: location,
	}

	c.SetTextAlign(tview.AlignCenter).
		SetTextColor(tcell.ColorLime).
		SetBorder(true).
		SetTitle(zoneTitle(location))

	return c
}

// Run keeps the clock current until the context is cancelled.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(clockRefreshInterval)
	defer ticker.Stop()

	for {
		now := time.Now().In(c.location)
		c.app.QueueUpdateDraw(func() {
			c.SetText(clockText(now))
		})

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
