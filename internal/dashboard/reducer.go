package dashboard

import (
	"time"

	"pilgrimwatch/internal/telemetry"
)

// Input is anything the reducer folds into State.
type Input interface{ input() }

// Channel transitions.
type (
	Connected    struct{}
	Disconnected struct{}
)

// Realtime is a classified reading pushed by the backend.
type Realtime struct {
	Event      telemetry.RealtimeEvent
	ReceivedAt time.Time
}

// Counters is a counters_update snapshot.
type Counters struct{ Update telemetry.CountersUpdate }

// StatusChanged is a simulation_status notification.
type StatusChanged struct{ Event telemetry.StatusEvent }

// Fetch results. Generation is copied from the effect that requested the
// fetch; results requested before the last reset are dropped.
type (
	StatusLoaded struct {
		Status     telemetry.SimulationStatus
		Generation uint64
	}
	StatisticsLoaded struct {
		Stats      telemetry.Statistics
		Generation uint64
	}
	TemperatureTimelineLoaded struct {
		Timeline   telemetry.TemperatureTimeline
		Generation uint64
	}
	AlertsTimelineLoaded struct {
		Timeline   telemetry.AlertsTimeline
		Generation uint64
	}
)

// Timer expiries and view actions.
type (
	PulseExpired   struct{ Version uint64 }
	FlashExpired   struct{ Version uint64 }
	ModalDismissed struct{}
)

func (Connected) input()                 {}
func (Disconnected) input()              {}
func (Realtime) input()                  {}
func (Counters) input()                  {}
func (StatusChanged) input()             {}
func (StatusLoaded) input()              {}
func (StatisticsLoaded) input()          {}
func (TemperatureTimelineLoaded) input() {}
func (AlertsTimelineLoaded) input()      {}
func (PulseExpired) input()              {}
func (FlashExpired) input()              {}
func (ModalDismissed) input()            {}

// Effect is work the Session performs on behalf of the reducer.
type Effect interface{ effect() }

// Bootstrap fetches the run status and then reconciles.
type Bootstrap struct{ Generation uint64 }

// Reconcile fetches statistics and both timelines.
type Reconcile struct{ Generation uint64 }

// SchedulePulse arms the pulse-clear timer for Version.
type SchedulePulse struct{ Version uint64 }

// ScheduleFlash arms the flash-clear timer for Version.
type ScheduleFlash struct{ Version uint64 }

func (Bootstrap) effect()     {}
func (Reconcile) effect()     {}
func (SchedulePulse) effect() {}
func (ScheduleFlash) effect() {}

// Reduce folds in into s. It is pure: s is not modified and the returned
// effects describe every side effect the caller must perform.
func Reduce(s State, in Input) (State, []Effect) {
	switch in := in.(type) {
	case Connected:
		s.Connected = true
		if !s.Bootstrapped || s.opts.ResyncOnReconnect {
			s.Bootstrapped = true
			return s, []Effect{Bootstrap{Generation: s.Generation}}
		}
		return s, nil

	case Disconnected:
		s.Connected = false
		s.Controls = controlsFor(false)
		return s, nil

	case Realtime:
		return reduceRealtime(s, in)

	case Counters:
		s.Panel.Ground = in.Update.Ground
		s.Panel.Nusuk = in.Update.Nusuk
		s.Panel.Time = in.Update.Time
		return s, nil

	case StatusChanged:
		return reduceStatus(s, in.Event)

	case StatusLoaded:
		if in.Generation != s.Generation {
			return s, nil
		}
		s.Run = in.Status
		s.Controls = controlsFor(in.Status.Running)
		return s, nil

	case StatisticsLoaded:
		if in.Generation != s.Generation {
			return s, nil
		}
		// Server truth replaces the optimistic tallies outright.
		s.Counters = in.Stats.Alerts
		s.Temperature = in.Stats.Temperature
		s.Locations = in.Stats.Locations
		s.HaveStatistics = true
		return s, nil

	case TemperatureTimelineLoaded:
		if in.Generation != s.Generation {
			return s, nil
		}
		s.TempTimeline = in.Timeline
		return s, nil

	case AlertsTimelineLoaded:
		if in.Generation != s.Generation {
			return s, nil
		}
		s.AlertsTimeline = in.Timeline
		return s, nil

	case PulseExpired:
		if in.Version == s.Pulse.Version {
			s.Pulse.Active = false
		}
		return s, nil

	case FlashExpired:
		if in.Version == s.Flash.Version {
			s.Flash.Active = false
		}
		return s, nil

	case ModalDismissed:
		s.Modal = Modal{}
		return s, nil
	}
	return s, nil
}

func reduceRealtime(s State, in Realtime) (State, []Effect) {
	ev := in.Event
	r := ev.Event
	if r.PilgrimID == "" {
		return s, nil
	}
	var effects []Effect

	s.Telemetry = TelemetryDisplay{
		PilgrimID: r.PilgrimID,
		Temp:      formatTemp(r.Temp),
		Ground:    r.Ground,
		Nusuk:     r.Nusuk,
		SOS:       formatSOS(r.SOS),
		Alert:     ev.Action,
		Level:     ev.Alert,
	}
	s.Panel.Temp = formatTemp(r.Temp)
	s.Log = s.Log.Push(LogEntry{Icon: ev.Icon, Description: ev.Action, Level: ev.Alert, At: in.ReceivedAt})
	s.LastEventAt = in.ReceivedAt

	switch ev.Alert {
	case telemetry.AlertRed:
		s.Counters.Red++
	case telemetry.AlertOrange:
		s.Counters.Orange++
	case telemetry.AlertBlue:
		if r.LostID != "" {
			s.Modal = Modal{Visible: true, LostID: r.LostID}
			s.Counters.Blue++
		}
	}

	s.Markers = s.Markers.Upsert(Marker{PilgrimID: r.PilgrimID, Level: ev.Alert, Temp: r.Temp, Timestamp: r.Timestamp})
	s.Pulse = Pulse{PilgrimID: r.PilgrimID, Active: true, Version: s.Pulse.Version + 1}
	effects = append(effects, SchedulePulse{Version: s.Pulse.Version})

	switch ev.Alert {
	case telemetry.AlertRed, telemetry.AlertOrange, telemetry.AlertYellow, telemetry.AlertBlue, telemetry.AlertGreen:
		s.Flash = Flash{Level: ev.Alert, Active: true, Version: s.Flash.Version + 1}
		effects = append(effects, ScheduleFlash{Version: s.Flash.Version})
	}

	s.Run.Running = true
	s.Run.CurrentIndex++
	if s.opts.ReconcileEvery > 0 && s.Run.CurrentIndex%s.opts.ReconcileEvery == 0 {
		effects = append(effects, Reconcile{Generation: s.Generation})
	}
	return s, effects
}

func reduceStatus(s State, ev telemetry.StatusEvent) (State, []Effect) {
	var effects []Effect
	switch ev.Status {
	case telemetry.StatusStart:
		s.Controls = controlsFor(true)
		s.Run.Running = true
	case telemetry.StatusPause, telemetry.StatusReset, telemetry.StatusFinished:
		s.Controls = controlsFor(false)
		s.Run.Running = false
	}
	if ev.Status == telemetry.StatusReset || ev.Status == telemetry.StatusFinished {
		s.Run.CurrentIndex = 0
		s.Counters = telemetry.AlertCounts{}
		s.Log = s.Log.Clear()
		s.Telemetry = emptyTelemetry()
		s.Panel = emptyPanel()
		s.Modal = Modal{}
		s.Generation++
		effects = append(effects, Reconcile{Generation: s.Generation})
	}
	if ev.Running != nil {
		s.Run.Running = *ev.Running
	}
	if ev.Speed != nil && *ev.Speed > 0 {
		s.Run.Speed = *ev.Speed
	}
	return s, effects
}
