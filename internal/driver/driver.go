// Package driver implements bassgo's Driver: the component that holds
// all engine state, sequences the three assembly phases, and owns the
// target output file handle. Ported from bass's Bass class orchestration
// (original_source/tools/bass/bass/core/core.cpp Bass::assemble) and the
// teacher's main.go load->parse->run orchestration shape.
package driver

import (
	"os"
	"path/filepath"

	"github.com/retrotool/bassgo/internal/analyze"
	"github.com/retrotool/bassgo/internal/arch"
	"github.com/retrotool/bassgo/internal/diag"
	"github.com/retrotool/bassgo/internal/exec"
	"github.com/retrotool/bassgo/internal/source"
	"github.com/retrotool/bassgo/internal/symbols"
)

// Driver is the CLI-level contract described in spec.md §6: Source,
// Define, Constant accumulate program/configuration state; Assemble
// runs the full Analyze -> Query -> Write pipeline.
type Driver struct {
	Loader *source.Loader
	Store  *symbols.Store
	Diags  *diag.List

	// OutputPath is the CLI-level `-o` target (spec.md §6's "target
	// file"); empty means fall back to standard output when it is not
	// a terminal, matching Bass::write's stdout-fallback behavior.
	OutputPath string

	// ArchitectureName seeds the adapter installed before assembly
	// begins; a source-level `architecture` directive may still
	// override it mid-program.
	ArchitectureName string

	// IsTerminal reports whether standard output is a terminal; it is
	// a field (not a direct os/term call) so tests can stub it.
	IsTerminal func() bool

	analyzed       bool
	initialDefines []symbols.Define
}

// New creates an empty Driver, ready for Source/Define/Constant calls
// followed by Assemble.
func New() *Driver {
	return &Driver{
		Loader:     source.New(),
		Store:      symbols.New(),
		Diags:      &diag.List{},
		IsTerminal: defaultIsTerminal,
	}
}

func defaultIsTerminal() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// Source loads filename (and everything it transitively includes) into
// the driver's program. May be called more than once to assemble
// several top-level files into one program.
func (d *Driver) Source(filename string) error {
	return d.Loader.Load(filename)
}

// Define pre-seeds a global, program-wide textual define, as if the
// source began with `global define NAME value`. Mirrors Bass::define.
func (d *Driver) Define(name, value string) {
	d.initialDefines = append(d.initialDefines, symbols.Define{Name: name, Value: value})
}

// Constant pre-seeds a global constant. Mirrors Bass::constant, which
// upstream wraps in a bare try/catch that swallows any redefinition
// error; SetConstant (the unchecked form) matches that behavior since a
// fresh Store never already holds the name.
func (d *Driver) Constant(name string, value int64) {
	d.Store.SetConstant(name, value)
}

// resolveAdapter installs the architecture adapter named by
// ArchitectureName, falling back to the no-op base adapter. A later
// `architecture` directive in the source overrides this at runtime,
// exactly as the no-op base adapter does when no name is configured.
func (d *Driver) resolveAdapter() arch.Adapter {
	switch d.ArchitectureName {
	case "", "none":
		return arch.Base{ArchName: "none"}
	case "generic8":
		return arch.NewGeneric8()
	default:
		return arch.Base{ArchName: d.ArchitectureName}
	}
}

// Assemble runs Analyze (once, memoized across repeated calls) then a
// Query phase and a Write phase, exactly as spec.md §4.8 describes:
// any fatal diagnostic aborts the call and leaves the driver reusable
// — a later Assemble call re-seeds the pre-seeded defines and re-runs
// Query and Write over the already-analyzed program. Constants (those
// set through Constant and those resolved by earlier calls) stay in the
// Store between calls.
func (d *Driver) Assemble(strict bool) bool {
	d.Diags.Reset()

	if !d.analyzed {
		if err := analyze.Run(d.Loader.Program); err != nil {
			d.Diags.Add(asDiagError(err))
			return false
		}
		d.analyzed = true
	}

	for i := range d.initialDefines {
		def := d.initialDefines[i]
		d.Store.SetDefine(symbols.LevelGlobal, &def)
	}

	target, cleanup := d.openTarget()
	defer cleanup()

	ex := exec.New(d.Loader.Program, d.Loader, d.Store, d.resolveAdapter(), d.Diags, strict)
	ex.DefaultFile = target

	if !ex.Run(false) {
		return false
	}

	ex.Adapter = d.resolveAdapter()
	if !ex.Run(true) {
		return false
	}

	if d.Diags.HasErrors() {
		return false
	}
	if strict && len(d.Diags.Warnings) > 0 {
		return false
	}
	return true
}

// openTarget resolves the CLI-level default output sink: the `-o`
// file when one was configured, or standard output when none was and
// stdout isn't a terminal (spec.md §6), or nothing at all (a TTY with
// no `-o` just drives a dry assembly producing only diagnostics).
func (d *Driver) openTarget() (*os.File, func()) {
	if d.OutputPath != "" {
		full := d.OutputPath
		if dir := filepath.Dir(full); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(full, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644) // #nosec G304 -- CLI-chosen output path
		if err != nil {
			d.Diags.Add(diag.NewWarning(diag.Position{}, diag.CategoryIO, "",
				"unable to open target %q: %v", full, err))
			return nil, func() {}
		}
		return f, func() { f.Close() }
	}
	if d.IsTerminal != nil && !d.IsTerminal() {
		return os.Stdout, func() {}
	}
	return nil, func() {}
}

// asDiagError wraps a plain error into a *diag.Error so Diags.Add can
// classify it; analyze.Run already returns *diag.Error in practice, so
// this is only a defensive fallback.
func asDiagError(err error) *diag.Error {
	if de, ok := err.(*diag.Error); ok {
		return de
	}
	return diag.New(diag.Position{}, diag.CategoryStructural, "", "%v", err)
}
