package tripplanner

// tripResponse is the rapidJSON body returned by the trip endpoint.
type tripResponse struct {
	Journeys       []journey       `json:"journeys"`
	SystemMessages []systemMessage `json:"systemMessages"`
}

type systemMessage struct {
	Type   string `json:"type"`
	Module string `json:"module"`
	Code   int    `json:"code"`
	Text   string `json:"text"`
}

type journey struct {
	Interchanges int   `json:"interchanges"`
	Legs         []leg `json:"legs"`
}

type leg struct {
	Origin         stopEvent      `json:"origin"`
	Destination    stopEvent      `json:"destination"`
	Transportation transportation `json:"transportation"`
}

type stopEvent struct {
	ID                     string         `json:"id"`
	Name                   string         `json:"name"`
	DepartureTimePlanned   string         `json:"departureTimePlanned"`
	DepartureTimeEstimated string         `json:"departureTimeEstimated"`
	ArrivalTimePlanned     string         `json:"arrivalTimePlanned"`
	ArrivalTimeEstimated   string         `json:"arrivalTimeEstimated"`
	Properties             stopProperties `json:"properties"`
}

type stopProperties struct {
	Occupancy string `json:"occupancy"`
}

type transportation struct {
	ID               string                   `json:"id"`
	Name             string                   `json:"name"`
	DisassembledName string                   `json:"disassembledName"`
	Number           string                   `json:"number"`
	Product          product                  `json:"product"`
	Operator         operator                 `json:"operator"`
	Properties       transportationProperties `json:"properties"`
}

type product struct {
	Class int    `json:"class"`
	Name  string `json:"name"`
}

type operator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type transportationProperties struct {
	RealtimeTripID string `json:"RealtimeTripId"`
}

// departureTime prefers the real-time estimate over the timetabled value.
func (se *stopEvent) departureTime() string {
	if len(se.DepartureTimeEstimated) > 0 {
		return se.DepartureTimeEstimated
	}
	return se.DepartureTimePlanned
}

func (se *stopEvent) arrivalTime() string {
	if len(se.ArrivalTimeEstimated) > 0 {
		return se.ArrivalTimeEstimated
	}
	return se.ArrivalTimePlanned
}

// firstTransportLeg skips leading walking legs.
func (j *journey) firstTransportLeg() *leg {
	for idx := range j.Legs {
		if _, ok := productClasses[j.Legs[idx].Transportation.Product.Class]; ok {
			return &j.Legs[idx]
		}
	}
	return nil
}
