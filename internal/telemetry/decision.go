package telemetry

import "fmt"

// HeatStressThreshold is the temperature (°C) at which a reading is
// classified as heat stress.
const HeatStressThreshold = 40.0

// Classify runs the decision engine over a reading. Rules are evaluated in
// priority order: route violation, SOS, heat stress, lost person.
func Classify(r Reading) RealtimeEvent {
	ev := RealtimeEvent{
		Event:  r,
		Alert:  AlertGreen,
		Action: "Safe and on the permitted route",
		Icon:   "✅",
	}
	switch {
	case r.Ground != r.Nusuk:
		ev.Alert = AlertRed
		ev.Action = "Critical route violation: identify violators and dispatch a patrol"
		ev.Icon = "🚨"
	case r.SOS:
		ev.Alert = AlertOrange
		ev.Action = "SOS distress call: dispatch an ambulance immediately"
		ev.Icon = "🚑"
	case r.Temp >= HeatStressThreshold:
		ev.Alert = AlertYellow
		ev.Action = "Heat stress risk: dispatch hydration teams"
		ev.Icon = "☀️"
	case r.LostID != "":
		ev.Alert = AlertBlue
		ev.Action = fmt.Sprintf("Lost or separated pilgrim, notify: %s", r.LostID)
		ev.Icon = "👤"
	}
	return ev
}
