// Package dashboard folds the backend's event stream into view state and
// dispatches control requests back to it.
package dashboard

import (
	"fmt"
	"time"

	"pilgrimwatch/internal/telemetry"
)

// Placeholder is shown in display fields that have no value yet.
const Placeholder = "---"

// Options are the tunables of the reducer.
type Options struct {
	ActionLogCapacity int
	MarkerCapacity    int
	ReconcileEvery    int
	ResyncOnReconnect bool
}

// DefaultOptions returns the stock reducer settings.
func DefaultOptions() Options {
	return Options{ActionLogCapacity: 50, MarkerCapacity: 100, ReconcileEvery: 10, ResyncOnReconnect: true}
}

// Controls is the enablement of the control buttons.
type Controls struct {
	StartEnabled bool
	PauseEnabled bool
	StepEnabled  bool
}

func controlsFor(running bool) Controls {
	return Controls{StartEnabled: !running, PauseEnabled: running, StepEnabled: !running}
}

// TelemetryDisplay mirrors the most recent reading. Every field is
// Placeholder until the first event arrives.
type TelemetryDisplay struct {
	PilgrimID string
	Temp      string
	Ground    string
	Nusuk     string
	SOS       string
	Alert     string
	Level     telemetry.AlertLevel
}

func emptyTelemetry() TelemetryDisplay {
	return TelemetryDisplay{
		PilgrimID: Placeholder,
		Temp:      Placeholder,
		Ground:    Placeholder,
		Nusuk:     Placeholder,
		SOS:       Placeholder,
		Alert:     Placeholder,
	}
}

// CountersPanel is the ground/nusuk/time snapshot plus the last temperature.
type CountersPanel struct {
	Ground string
	Nusuk  string
	Time   string
	Temp   string
}

func emptyPanel() CountersPanel {
	return CountersPanel{Ground: Placeholder, Nusuk: Placeholder, Time: Placeholder, Temp: Placeholder}
}

// Modal is the lost-person overlay.
type Modal struct {
	Visible bool
	LostID  string
}

// Pulse highlights the most recently touched bracelet until its timer fires.
type Pulse struct {
	PilgrimID string
	Active    bool
	Version   uint64
}

// Flash highlights the stat card of the last alert level until its timer fires.
type Flash struct {
	Level   telemetry.AlertLevel
	Active  bool
	Version uint64
}

// State is the complete view state. It is a value: Reduce returns a new State
// and never mutates the one it was given.
type State struct {
	Connected    bool
	Bootstrapped bool
	Controls     Controls
	Run          telemetry.SimulationStatus
	Counters     telemetry.AlertCounts

	Telemetry TelemetryDisplay
	Panel     CountersPanel
	Log       ActionLog
	Markers   MarkerSet
	Modal     Modal
	Pulse     Pulse
	Flash     Flash

	HaveStatistics bool
	Temperature    telemetry.TemperatureSummary
	Locations      map[string]int
	TempTimeline   telemetry.TemperatureTimeline
	AlertsTimeline telemetry.AlertsTimeline

	LastEventAt time.Time

	// Generation counts resets and finished runs.
	Generation uint64

	opts Options
}

// NewState returns the initial state for opts. Zero capacities fall back to
// the defaults.
func NewState(opts Options) State {
	def := DefaultOptions()
	if opts.ActionLogCapacity <= 0 {
		opts.ActionLogCapacity = def.ActionLogCapacity
	}
	if opts.MarkerCapacity <= 0 {
		opts.MarkerCapacity = def.MarkerCapacity
	}
	if opts.ReconcileEvery <= 0 {
		opts.ReconcileEvery = def.ReconcileEvery
	}
	return State{
		Controls:  controlsFor(false),
		Telemetry: emptyTelemetry(),
		Panel:     emptyPanel(),
		Log:       NewActionLog(opts.ActionLogCapacity),
		Markers:   NewMarkerSet(opts.MarkerCapacity),
		opts:      opts,
	}
}

// Options returns the settings the state was created with.
func (s State) Options() Options { return s.opts }

// RunLine renders the run/record indicator.
func (s State) RunLine() string {
	status := "stopped"
	if s.Run.Running {
		status = "running"
	}
	line := fmt.Sprintf("Status: %s. Record: %d / %d", status, s.Run.CurrentIndex, s.Run.TotalRecords)
	if s.Run.Speed > 0 {
		line += fmt.Sprintf(" • speed %dx", s.Run.Speed)
	}
	return line
}

func formatTemp(v float64) string { return fmt.Sprintf("%.1f°C", v) }

func formatSOS(sos bool) string {
	if sos {
		return "yes ⚠️"
	}
	return "no ✅"
}
