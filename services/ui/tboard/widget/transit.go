package widget

import (
	"fmt"

	"github.com/gdamore/tcell"
	"github.com/rivo/tview"
	"github.com/rmrobinson/tnsw/services/transit"
	"github.com/rmrobinson/tnsw/services/transit/tripplanner"
)

type transitRecord struct {
	*tview.Flex

	nameText    *tview.TextView
	lineText    *tview.TextView
	dueTimeText *tview.TextView
}

func newTransitRecord() *transitRecord {
	tr := &transitRecord{
		Flex:        tview.NewFlex(),
		nameText:    tview.NewTextView(),
		lineText:    tview.NewTextView(),
		dueTimeText: tview.NewTextView(),
	}

	tr.nameText.SetTextAlign(tview.AlignLeft)
	tr.lineText.SetTextAlign(tview.AlignLeft).
		SetTextColor(tcell.ColorYellow)
	tr.dueTimeText.SetTextAlign(tview.AlignRight)

	tr.SetDirection(tview.FlexColumn).
		AddItem(tr.nameText, 0, 1, false).
		AddItem(tr.lineText, 6, 1, false).
		AddItem(tr.dueTimeText, 8, 1, false)

	return tr
}

func (tr *transitRecord) clear() {
	tr.nameText.Clear()
	tr.lineText.Clear()
	tr.dueTimeText.Clear()
}

// dueText describes how long until departure.
func dueText(due *int) string {
	if due == nil {
		return "--"
	}
	if *due < 1 {
		return "Due"
	}
	return fmt.Sprintf("%d mins", *due)
}

// lineText returns the short line name, falling back to the transport type.
func lineText(attrs map[string]interface{}) string {
	for _, key := range []string{transit.AttrOriginLineNameShort, transit.AttrOriginTransportType} {
		if v, ok := attrs[key].(string); ok && len(v) > 0 && v != tripplanner.NotAvailable {
			return v
		}
	}
	return ""
}

// Transit is a widget that displays the upcoming departures for each monitored route.
type Transit struct {
	*tview.Flex

	app *tview.Application

	records []*transitRecord
}

// NewTransit creates a new transit widget with the specified number of rows.
// It will not show any data until Refresh() is called to display the data.
func NewTransit(app *tview.Application, rowCount int) *Transit {
	wf := &Transit{
		Flex: tview.NewFlex(),
		app:  app,
	}

	wf.SetBorder(true).
		SetTitle("Departures").
		SetTitleAlign(tview.AlignLeft)

	wf.SetDirection(tview.FlexRow)
	for i := 0; i < rowCount; i++ {
		wf.records = append(wf.records, newTransitRecord())
		wf.AddItem(wf.records[i], 1, 1, false)
	}

	return wf
}

// Refresh causes the departure data to be updated.
func (wf *Transit) Refresh(sensors []*transit.SensorState) {
	wf.app.QueueUpdateDraw(func() {
		for i := 0; i < len(wf.records); i++ {
			if i >= len(sensors) {
				wf.records[i].clear()
				continue
			}

			sensor := sensors[i]

			wf.records[i].nameText.SetText(sensor.Name)
			wf.records[i].lineText.SetText(lineText(sensor.Attributes))
			wf.records[i].dueTimeText.SetText(dueText(sensor.Value))
		}
	})
}
