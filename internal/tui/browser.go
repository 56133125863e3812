// Package tui implements a read-only post-assembly program/symbol
// browser, adapted from the teacher's debugger TUI
// (debugger/tui.go's tview.Flex panel layout and tcell key-capture
// idiom) but stripped down to browsing: no stepping, no breakpoints,
// no command input — bassgo's core is a batch assembler, not an
// interactive debugger, so only the "show me what was assembled"
// surface survives the adaptation.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/retrotool/bassgo/internal/driver"
	"github.com/retrotool/bassgo/internal/source"
)

// Browser is a read-only viewer over a Driver's loaded program and
// resolved symbol table, shown after Assemble has run.
type Browser struct {
	App *tview.Application
	d   *driver.Driver

	programView *tview.TextView
	symbolsView *tview.TextView
	statusBar   *tview.TextView
}

// New builds a Browser over d. Call Run to enter the interactive loop;
// d.Assemble should have already completed (successfully or not — a
// failed assembly still has a partially populated program/constants
// table worth inspecting).
func New(d *driver.Driver) *Browser {
	b := &Browser{App: tview.NewApplication(), d: d}
	b.build()
	return b
}

func (b *Browser) build() {
	b.programView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	b.programView.SetBorder(true).SetTitle(" Program ")

	b.symbolsView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	b.symbolsView.SetBorder(true).SetTitle(" Symbols ")

	b.statusBar = tview.NewTextView().SetDynamicColors(true)
	b.statusBar.SetText("[yellow]q[white]:quit  [yellow]tab[white]:switch panel  arrows/j/k:scroll")

	content := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(b.programView, 0, 3, true).
		AddItem(b.symbolsView, 0, 2, false)

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(content, 0, 1, true).
		AddItem(b.statusBar, 1, 0, false)

	b.App.SetRoot(layout, true)
	b.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyRune && event.Rune() == 'q':
			b.App.Stop()
			return nil
		case event.Key() == tcell.KeyCtrlC:
			b.App.Stop()
			return nil
		case event.Key() == tcell.KeyTab:
			if b.App.GetFocus() == b.programView {
				b.App.SetFocus(b.symbolsView)
			} else {
				b.App.SetFocus(b.programView)
			}
			return nil
		}
		return event
	})

	b.refresh()
}

// refresh renders the current program and symbol table into their
// respective views; called once at startup since bassgo's core has
// no live re-assembly loop to watch.
func (b *Browser) refresh() {
	b.programView.SetText(renderProgram(b.d.Loader))
	b.symbolsView.SetText(renderSymbols(b.d.Store.Constants))
}

func renderProgram(l *source.Loader) string {
	var sb strings.Builder
	for ip, instr := range l.Program {
		file := l.FormatFile(instr.FileNumber)
		fmt.Fprintf(&sb, "[gray]%4d[white] %s:%d:%d  %s\n", ip, file, instr.LineNumber, instr.BlockNumber, tview.Escape(instr.Statement))
	}
	if sb.Len() == 0 {
		return "[yellow]no program loaded[white]"
	}
	return sb.String()
}

func renderSymbols(constants map[string]int64) string {
	names := make([]string, 0, len(constants))
	for name := range constants {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%-28s = %d (0x%x)\n", tview.Escape(name), constants[name], constants[name])
	}
	if sb.Len() == 0 {
		return "[yellow]no constants resolved[white]"
	}
	return sb.String()
}

// Run enters the Browser's event loop until the user quits.
func (b *Browser) Run() error {
	return b.App.Run()
}
