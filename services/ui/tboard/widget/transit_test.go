package widget

import (
	"testing"
)

func intPtr(v int) *int {
	return &v
}

type dueTextTest struct {
	name   string
	due    *int
	result string
}

var dueTextTests = []dueTextTest{
	{
		"no data",
		nil,
		"--",
	},
	{
		"departing now",
		intPtr(0),
		"Due",
	},
	{
		"later",
		intPtr(12),
		"12 mins",
	},
}

func TestDueText(t *testing.T) {
	for _, tt := range dueTextTests {
		t.Run(tt.name, func(t *testing.T) {
			if res := dueText(tt.due); res != tt.result {
				t.Errorf("expected %s, got %s", tt.result, res)
			}
		})
	}
}

type lineTextTest struct {
	name   string
	attrs  map[string]interface{}
	result string
}

var lineTextTests = []lineTextTest{
	{
		"short line name",
		map[string]interface{}{"origin_line_name_short": "T4", "origin_transport_type": "Train"},
		"T4",
	},
	{
		"transport type fallback",
		map[string]interface{}{"origin_line_name_short": "", "origin_transport_type": "Ferry"},
		"Ferry",
	},
	{
		"placeholder",
		map[string]interface{}{"origin_line_name_short": "n/a", "origin_transport_type": "n/a"},
		"",
	},
	{
		"missing",
		nil,
		"",
	},
}

func TestLineText(t *testing.T) {
	for _, tt := range lineTextTests {
		t.Run(tt.name, func(t *testing.T) {
			if res := lineText(tt.attrs); res != tt.result {
				t.Errorf("expected %s, got %s", tt.result, res)
			}
		})
	}
}
