// Wire types exchanged with the pilgrim simulation backend
package telemetry

import (
	"strings"
	"time"
)

// AlertLevel is the severity assigned to a telemetry reading.
type AlertLevel string

// Alert levels emitted by the decision engine. AlertNone marks a payload
// without a classification.
const (
	AlertRed    AlertLevel = "RED"    // route violation
	AlertOrange AlertLevel = "ORANGE" // SOS
	AlertYellow AlertLevel = "YELLOW" // heat stress
	AlertBlue   AlertLevel = "BLUE"   // lost person
	AlertGreen  AlertLevel = "GREEN"  // nominal
	AlertNone   AlertLevel = ""
)

// Valid reports whether a is one of the known levels (AlertNone included).
func (a AlertLevel) Valid() bool {
	switch a {
	case AlertRed, AlertOrange, AlertYellow, AlertBlue, AlertGreen, AlertNone:
		return true
	}
	return false
}

// Color returns the hex display color for the level.
func (a AlertLevel) Color() string {
	switch a {
	case AlertRed:
		return "#dc3545"
	case AlertOrange:
		return "#fd7e14"
	case AlertYellow:
		return "#ffc107"
	case AlertBlue:
		return "#17a2b8"
	case AlertGreen:
		return "#28a745"
	}
	return "#6c757d"
}

// Reading is one simulated bracelet reading, the "event" object of a
// realtime_event payload.
type Reading struct {
	Timestamp string  `json:"timestamp"`
	PilgrimID string  `json:"pilgrim_id"`
	Temp      float64 `json:"temp"`
	Ground    string  `json:"ground"`
	Nusuk     string  `json:"nusuk"`
	SOS       bool    `json:"sos"`
	LostID    string  `json:"lost_id,omitempty"`
}

// Time parses the reading timestamp. The backend emits ISO-8601 without a
// zone; those values are interpreted as UTC.
func (r Reading) Time() (time.Time, error) {
	return ParseTimestamp(r.Timestamp)
}

// RealtimeEvent is the payload of a realtime_event.
type RealtimeEvent struct {
	Event  Reading    `json:"event"`
	Alert  AlertLevel `json:"alert"`
	Action string     `json:"action"`
	Icon   string     `json:"icon"`
}

// CountersUpdate is the payload of a counters_update.
type CountersUpdate struct {
	Ground string `json:"ground"`
	Nusuk  string `json:"nusuk"`
	Time   string `json:"time"`
}

// Simulation status values carried by simulation_status events.
const (
	StatusStart     = "start"
	StatusPause     = "pause"
	StatusReset     = "reset"
	StatusFinished  = "finished"
	StatusConnected = "connected"
)

// StatusEvent is the payload of a simulation_status event.
type StatusEvent struct {
	Status  string `json:"status"`
	Running *bool  `json:"running,omitempty"`
	Speed   *int   `json:"speed,omitempty"`
}

// SimulationStatus is returned by GET /api/status.
type SimulationStatus struct {
	Running      bool `json:"running"`
	CurrentIndex int  `json:"current_index"`
	TotalRecords int  `json:"total_records"`
	Speed        int  `json:"speed"`
}

// AlertCounts holds per-level tallies.
type AlertCounts struct {
	Red    int `json:"red"`
	Orange int `json:"orange"`
	Yellow int `json:"yellow"`
	Blue   int `json:"blue"`
}

// TemperatureSummary holds min/max/avg temperature.
type TemperatureSummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// Statistics is returned by GET /api/statistics.
type Statistics struct {
	Alerts      AlertCounts        `json:"alerts"`
	Temperature TemperatureSummary `json:"temperature"`
	Locations   map[string]int     `json:"locations"`
}

// TemperatureTimeline is returned by GET /api/temperature-timeline.
type TemperatureTimeline struct {
	Timestamps []string  `json:"timestamps"`
	AvgTemps   []float64 `json:"avg_temps"`
	MaxTemps   []float64 `json:"max_temps"`
	MinTemps   []float64 `json:"min_temps"`
}

// AlertsTimeline is returned by GET /api/alerts-timeline.
type AlertsTimeline struct {
	Timestamps []string `json:"timestamps"`
	Red        []int    `json:"red"`
	Orange     []int    `json:"orange"`
	Yellow     []int    `json:"yellow"`
}

// ControlAction names a simulation control request.
type ControlAction string

// Control actions accepted by POST /api/control.
const (
	ActionStart    ControlAction = "START"
	ActionPause    ControlAction = "PAUSE"
	ActionReset    ControlAction = "RESET"
	ActionNextStep ControlAction = "NEXT_STEP"
	ActionSpeed    ControlAction = "SPEED"
)

// ParseControlAction maps a user supplied name (any case, "step" allowed)
// to a ControlAction.
func ParseControlAction(s string) (ControlAction, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "START":
		return ActionStart, true
	case "PAUSE":
		return ActionPause, true
	case "RESET":
		return ActionReset, true
	case "NEXT_STEP", "STEP", "NEXT":
		return ActionNextStep, true
	case "SPEED":
		return ActionSpeed, true
	}
	return "", false
}

// ControlRequest is the JSON body of POST /api/control. Value is only set
// for SPEED.
type ControlRequest struct {
	Action ControlAction `json:"action"`
	Value  *int          `json:"value"`
}

// ControlResponse is the acknowledgement returned by POST /api/control.
type ControlResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Locations visited during the simulated pilgrimage day.
var Locations = []string{"Haram", "Mina", "Arafat", "Muzdalifah", "Jamarat"}

const timestampLayout = "2006-01-02T15:04:05"

// ParseTimestamp accepts RFC 3339 and the zone-less ISO form.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(timestampLayout, s)
}

// FormatTimestamp renders t the way the backend does.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
