package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"pilgrimwatch/internal/config"
	"pilgrimwatch/internal/conn"
	"pilgrimwatch/internal/dashboard"
	"pilgrimwatch/internal/tui"
)

type viewMode int

const (
	modeTUI viewMode = iota
	modePlain
	modeJSON
)

func (m viewMode) String() string {
	switch m {
	case modePlain:
		return "plain"
	case modeJSON:
		return "json"
	}
	return "tui"
}

// selectMode picks the renderer. The full-screen view needs a terminal.
func selectMode(plain, jsonLines, tty bool) viewMode {
	switch {
	case jsonLines:
		return modeJSON
	case plain || !tty:
		return modePlain
	}
	return modeTUI
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// newPrinter returns the line printer for headless modes, nil for the TUI.
func newPrinter(mode viewMode, out io.Writer, ov *dashboard.Overview) dashboard.Observer {
	switch mode {
	case modePlain:
		return dashboard.NewColorPrinter(out, ov)
	case modeJSON:
		return dashboard.NewJSONPrinter(out)
	}
	return nil
}

func sessionOptions(cfg *config.Config) dashboard.SessionOptions {
	d := cfg.Dashboard
	return dashboard.SessionOptions{
		Options: dashboard.Options{
			ActionLogCapacity: d.ActionLogCapacity,
			MarkerCapacity:    d.MarkerCapacity,
			ReconcileEvery:    d.ReconcileEvery,
			ResyncOnReconnect: d.ResyncOnReconnect,
		},
		PulseDuration: d.PulseDuration,
		FlashDuration: d.FlashDuration,
		FetchTimeout:  cfg.Connection.FetchTimeout,
	}
}

func managerOptions(cfg *config.Config) conn.Options {
	return conn.Options{
		ServerURL:      cfg.Server.URL,
		Namespace:      cfg.Server.Namespace,
		SocketPath:     cfg.Server.SocketPath,
		Reconnect:      cfg.Connection.Reconnect,
		BackoffInitial: cfg.Connection.BackoffInitial,
		BackoffMax:     cfg.Connection.BackoffMax,
	}
}

// view is one dashboard session bound to a renderer. backend and ctl are
// nil for replays.
type view struct {
	src      conn.Source
	backend  dashboard.Backend
	ctl      dashboard.Controller
	mode     viewMode
	out      io.Writer
	overview dashboard.Overview
	opts     dashboard.SessionOptions
	log      *slog.Logger
}

// run drives the session until ctx is cancelled, the source closes in a
// headless mode, or the user quits the TUI.
func (v view) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	mo := dashboard.NewMultiObserver(newPrinter(v.mode, v.out, &v.overview))
	sess := dashboard.NewSession(v.src, v.backend, mo, v.opts, v.log)

	var disp *dashboard.Dispatcher
	var cmdr tui.Commander
	if v.ctl != nil {
		disp = dashboard.NewDispatcher(ctx, v.ctl, v.log)
		cmdr = disp
	}
	defer func() {
		cancel()
		if disp != nil {
			disp.Wait()
		}
	}()

	if v.mode != modeTUI {
		return sess.Run(ctx)
	}

	m := tui.NewModel(dashboard.NewState(v.opts.Options), cmdr, sess, v.overview.Source)
	p := tui.NewProgram(m)
	w := tui.NewWriter(p)
	mo.Add(w)

	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()
	go func() {
		<-ctx.Done()
		w.Close()
	}()

	_, err := p.Run()
	cancel()
	if serr := <-done; err == nil {
		err = serr
	}
	return err
}
