// Package tui is a live viewer over pkg/debugger's command API: a
// register panel, the instruction ring buffer, and the ftrace call
// depth (in the status line), refreshed after every step/continue. It
// never reads pkg/cpu machine state directly, only through Debugger's
// exported methods and fields, so it can't grow
// a second source of truth for machine state. Built with
// github.com/rivo/tview and github.com/gdamore/tcell/v2, the same pair
// bassosimone/risc32's pack-mate lookbusy1344/arm-emulator depends on
// for its own debugger TUI.
package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/coding-potatoo/rv32emu/pkg/cpu"
	"github.com/coding-potatoo/rv32emu/pkg/debugger"
)

// App wraps a tview.Application wired to a Debugger.
type App struct {
	dbg  *debugger.Debugger
	app  *tview.Application
	regs *tview.TextView
	ring *tview.TextView
	log  *tview.TextView
}

// New builds the layout: a register panel and ring-buffer panel side
// by side, with a status/log line beneath them.
func New(dbg *debugger.Debugger) *App {
	a := &App{dbg: dbg, app: tview.NewApplication()}

	a.regs = tview.NewTextView().SetDynamicColors(true)
	a.regs.SetBorder(true).SetTitle("registers")

	a.ring = tview.NewTextView().SetDynamicColors(true)
	a.ring.SetBorder(true).SetTitle("instruction trace")

	a.log = tview.NewTextView().SetDynamicColors(true)
	a.log.SetBorder(true).SetTitle("status (s: step, c: continue, q: quit)")

	top := tview.NewFlex().
		AddItem(a.regs, 0, 1, false).
		AddItem(a.ring, 0, 2, false)
	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(top, 0, 4, false).
		AddItem(a.log, 3, 0, false)

	a.app.SetRoot(root, true)
	a.app.SetInputCapture(a.onKey)
	a.refresh("ready")
	return a
}

// Run starts the event loop; it returns when the user quits or the
// CPU reaches a terminal state.
func (a *App) Run() error {
	return a.app.Run()
}

func (a *App) onKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 's':
		state := a.dbg.Step(1)
		a.refresh(fmt.Sprintf("stepped, state=%s", state))
		a.maybeStop(state)
	case 'c':
		state := a.dbg.Continue()
		a.refresh(fmt.Sprintf("continued, state=%s", state))
		a.maybeStop(state)
	case 'q':
		a.dbg.Quit()
		a.app.Stop()
		return nil
	}
	return event
}

func (a *App) maybeStop(state cpu.State) {
	if state == cpu.StateEnd || state == cpu.StateAbort || state == cpu.StateQuit {
		a.app.Stop()
	}
}

func (a *App) refresh(status string) {
	a.regs.SetText(a.dbg.InfoRegisters())
	a.ring.SetText(strings.Join(a.dbg.Ring.Dump(), "\n"))
	a.log.SetText(fmt.Sprintf("%s, call depth=%d", status, a.dbg.FTrace.Depth()))
}
