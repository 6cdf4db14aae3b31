package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"pilgrimwatch/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
	colorOrange  = "\x1b[38;5;208m"
)

func levelColor(l telemetry.AlertLevel) string {
	switch l {
	case telemetry.AlertRed:
		return colorRed
	case telemetry.AlertOrange:
		return colorOrange
	case telemetry.AlertYellow:
		return colorYellow
	case telemetry.AlertBlue:
		return colorCyan
	case telemetry.AlertGreen:
		return colorGreen
	}
	return colorGray
}

// Overview is printed once before the first line.
type Overview struct {
	Source    string
	Namespace string
	Mode      string
}

// ColorPrinter prints one ANSI-colored line per interesting update.
type ColorPrinter struct {
	out      io.Writer
	overview *Overview
	once     sync.Once
	now      func() time.Time
}

// NewColorPrinter creates a ColorPrinter. ov may be nil.
func NewColorPrinter(out io.Writer, ov *Overview) *ColorPrinter {
	return &ColorPrinter{out: out, overview: ov, now: time.Now}
}

func (p *ColorPrinter) printOverview() {
	if p.overview == nil {
		return
	}
	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Source:\t%s\n", p.overview.Source)
	if p.overview.Namespace != "" {
		fmt.Fprintf(tw, "Namespace:\t%s\n", p.overview.Namespace)
	}
	if p.overview.Mode != "" {
		fmt.Fprintf(tw, "Mode:\t%s\n", p.overview.Mode)
	}
	tw.Flush()
	fmt.Fprintln(p.out)
}

// Observe implements Observer.
func (p *ColorPrinter) Observe(u Update) {
	p.once.Do(p.printOverview)
	stamp := p.now()
	if rt, ok := u.Input.(Realtime); ok && !rt.ReceivedAt.IsZero() {
		stamp = rt.ReceivedAt
	}
	prefix := fmt.Sprintf("%s[%s]%s ", colorGray, stamp.Format(time.TimeOnly), colorReset)

	s := u.State
	switch in := u.Input.(type) {
	case Connected:
		fmt.Fprintf(p.out, "%s%sCONNECTED%s\n", prefix, colorGreen, colorReset)
	case Disconnected:
		fmt.Fprintf(p.out, "%s%sDISCONNECTED%s\n", prefix, colorRed, colorReset)
	case Realtime:
		ev := in.Event
		col := levelColor(ev.Alert)
		level := string(ev.Alert)
		if level == "" {
			level = "NONE"
		}
		fmt.Fprintf(p.out, "%s%s%-6s%s ", prefix, col, level, colorReset)
		fmt.Fprintf(p.out, "%spilgrim=%s%s ", colorBlue, ev.Event.PilgrimID, colorReset)
		fmt.Fprintf(p.out, "%stemp=%.1f%s ", colorYellow, ev.Event.Temp, colorReset)
		fmt.Fprintf(p.out, "ground=%s nusuk=%s ", ev.Event.Ground, ev.Event.Nusuk)
		if ev.Event.SOS {
			fmt.Fprintf(p.out, "%ssos%s ", colorOrange, colorReset)
		}
		if ev.Event.LostID != "" {
			fmt.Fprintf(p.out, "%slost=%s%s ", colorCyan, ev.Event.LostID, colorReset)
		}
		fmt.Fprintf(p.out, "%s%s %s%s ", col, ev.Icon, ev.Action, colorReset)
		fmt.Fprintf(p.out, "%s#%d%s\n", colorGray, s.Run.CurrentIndex, colorReset)
	case Counters:
		fmt.Fprintf(p.out, "%s%sCOUNTERS%s ground=%s nusuk=%s time=%s\n", prefix, colorMagenta, colorReset,
			in.Update.Ground, in.Update.Nusuk, in.Update.Time)
	case StatusChanged:
		fmt.Fprintf(p.out, "%s%sSTATUS%s %s %s\n", prefix, colorBlue, colorReset, in.Event.Status, s.RunLine())
	case StatusLoaded:
		fmt.Fprintf(p.out, "%s%sSTATUS%s %s\n", prefix, colorBlue, colorReset, s.RunLine())
	case StatisticsLoaded:
		c := s.Counters
		fmt.Fprintf(p.out, "%s%sSTATS%s %sred=%d%s %sorange=%d%s %syellow=%d%s %sblue=%d%s temp=%.1f/%.1f/%.1f\n",
			prefix, colorMagenta, colorReset,
			colorRed, c.Red, colorReset, colorOrange, c.Orange, colorReset,
			colorYellow, c.Yellow, colorReset, colorCyan, c.Blue, colorReset,
			s.Temperature.Min, s.Temperature.Avg, s.Temperature.Max)
	}
}

// JSONPrinter prints every update as one JSON object per line.
type JSONPrinter struct {
	out io.Writer
}

// NewJSONPrinter creates a JSONPrinter.
func NewJSONPrinter(out io.Writer) *JSONPrinter {
	return &JSONPrinter{out: out}
}

type jsonLine struct {
	Input     string                     `json:"input"`
	Payload   any                        `json:"payload,omitempty"`
	Connected bool                       `json:"connected"`
	Run       telemetry.SimulationStatus `json:"run"`
	Counters  telemetry.AlertCounts      `json:"counters"`
	LogSize   int                        `json:"log_size"`
	Markers   int                        `json:"markers"`
	Modal     string                     `json:"modal,omitempty"`
}

// Observe implements Observer. Timer expiries are skipped.
func (p *JSONPrinter) Observe(u Update) {
	name, payload := describe(u.Input)
	if name == "" {
		return
	}
	line := jsonLine{
		Input:     name,
		Payload:   payload,
		Connected: u.State.Connected,
		Run:       u.State.Run,
		Counters:  u.State.Counters,
		LogSize:   u.State.Log.Len(),
		Markers:   u.State.Markers.Len(),
	}
	if u.State.Modal.Visible {
		line.Modal = u.State.Modal.LostID
	}
	data, _ := json.Marshal(line)
	fmt.Fprintln(p.out, string(data))
}

func describe(in Input) (string, any) {
	switch in := in.(type) {
	case Connected:
		return "connect", nil
	case Disconnected:
		return "disconnect", nil
	case Realtime:
		return "realtime_event", in.Event
	case Counters:
		return "counters_update", in.Update
	case StatusChanged:
		return "simulation_status", in.Event
	case StatusLoaded:
		return "status", in.Status
	case StatisticsLoaded:
		return "statistics", in.Stats
	case TemperatureTimelineLoaded:
		return "temperature_timeline", in.Timeline
	case AlertsTimelineLoaded:
		return "alerts_timeline", in.Timeline
	case ModalDismissed:
		return "modal_dismissed", nil
	}
	return "", nil
}
