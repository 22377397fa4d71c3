package widget

import (
	"github.com/gdamore/tcell"
	"github.com/rivo/tview"
)

// Debug is a widget to display log output.
type Debug struct {
	*tview.TextView

	app *tview.Application
}

// NewDebug creates a new debug widget.
func NewDebug(app *tview.Application) *Debug {
	d := &Debug{
		TextView: tview.NewTextView(),
		app:      app,
	}

	d.SetTextAlign(tview.AlignLeft).
		SetTextColor(tcell.ColorBlue).
		SetBorder(true).
		SetTitle("Log")

	return d
}

// Append adds the contents to the end of the debug widget.
func (d *Debug) Append(contents string) {
	d.app.QueueUpdateDraw(func() {
		d.Write([]byte(contents))
		d.ScrollToEnd()
	})
}
