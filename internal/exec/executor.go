// Package exec implements the assembler's Executor: it walks the
// analyzed program statement by statement, dispatching control flow,
// macro/inline invocation, assembler directives, and architecture
// mnemonics. Ported from bass's Bass::execute/executeInstruction
// (original_source/tools/bass/bass/core/core.cpp).
package exec

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/retrotool/bassgo/internal/arch"
	"github.com/retrotool/bassgo/internal/diag"
	"github.com/retrotool/bassgo/internal/eval"
	"github.com/retrotool/bassgo/internal/source"
	"github.com/retrotool/bassgo/internal/symbols"
)

// addressQueueEntry is one LIFO entry pushed by `enqueue` and restored
// by `dequeue`: kind names which of origin/base/pc (both) it captured,
// so dequeue restores exactly what was saved regardless of the name
// written at the dequeue call site.
type addressQueueEntry struct {
	kind         string
	origin, base int64
}

// output is a single `output "path"` destination opened during the
// Write phase.
type output struct {
	name string
	file *os.File
	pc   int64
}

// Executor runs the analyzed program once per phase (Query, then
// Write), re-resolving every address from scratch each time: origin
// always advances, but only the Write phase performs real file I/O.
type Executor struct {
	Program []source.Instruction
	Loader  *source.Loader
	Store   *symbols.Store
	Adapter arch.Adapter
	Diags   *diag.List
	Strict  bool

	relative symbols.RelativeLabels

	writing bool
	origin  int64
	base    int64
	endian  arch.Endian

	stack       []addressQueueEntry
	conditional []bool

	current *output
	outputs map[string]*output

	// DefaultFile is the CLI-level `-o` target, used when no `output`
	// directive has opened a more specific sink yet.
	DefaultFile *os.File

	// stringTable implements the `map` directive's character
	// translation: a rune read from a quoted db/dw/... item is looked
	// up here before being encoded, defaulting to its own code point.
	stringTable map[rune]int64

	macroCounter int
}

// New creates an Executor over an analyzed program.
func New(program []source.Instruction, loader *source.Loader, store *symbols.Store, adapter arch.Adapter, diags *diag.List, strict bool) *Executor {
	return &Executor{
		Program:     program,
		Loader:      loader,
		Store:       store,
		Adapter:     adapter,
		Diags:       diags,
		Strict:      strict,
		outputs:     make(map[string]*output),
		stringTable: defaultStringTable(),
	}
}

func defaultStringTable() map[rune]int64 {
	m := make(map[rune]int64, 256)
	for i := 0; i < 256; i++ {
		m[rune(i)] = int64(i)
	}
	return m
}

// PC, Origin and Base report the executor's address state; evalContext
// and ctxAdapter below expose it to the evaluator and the adapter.
func (e *Executor) PC() int64                { return e.origin + e.base }
func (e *Executor) Origin() int64            { return e.origin }
func (e *Executor) Base() int64              { return e.base }
func (e *Executor) StoreRef() *symbols.Store { return e.Store }

// ctxAdapter adapts Executor to arch.Writer for adapter calls.
type ctxAdapter struct{ e *Executor }

func (c ctxAdapter) PC() int64                        { return c.e.PC() }
func (c ctxAdapter) Endian() arch.Endian              { return c.e.endian }
func (c ctxAdapter) Emit(b ...byte)                   { c.e.emit(b...) }
func (c ctxAdapter) Evaluate(expr string) (int64, error) { return c.e.eval(expr) }

// evalContext adapts Executor to eval.Context.
type evalContext struct{ e *Executor }

func (c evalContext) Store() *symbols.Store             { return c.e.Store }
func (c evalContext) PC() int64                          { return c.e.PC() }
func (c evalContext) Origin() int64                      { return c.e.origin }
func (c evalContext) Base() int64                        { return c.e.base }
func (c evalContext) Relative() *symbols.RelativeLabels  { return &c.e.relative }
func (c evalContext) Querying() bool                     { return !c.e.writing }

func (e *Executor) eval(expr string) (int64, error) {
	expanded := eval.ExpandDefines(expr, evalContext{e})
	return eval.EvalString(expanded, evalContext{e})
}

// Run executes the full program once, in Query mode (writing=false) or
// Write mode (writing=true). Returns false if any fatal diagnostic was
// recorded (or, in strict mode, any warning).
func (e *Executor) Run(writing bool) bool {
	e.writing = writing
	e.origin, e.base = 0, 0
	e.stack = nil
	e.conditional = nil
	e.Store.Scope = ""
	// Relative-label counters are positional bookkeeping for this single
	// pass, not persisted state: each phase re-walks the whole program
	// from the top, so they must restart at zero or Write's indices
	// would drift from the ones Query resolved against.
	e.relative = symbols.RelativeLabels{}

	for ip := 0; ip < len(e.Program); {
		instr := e.Program[ip]
		next, err := e.step(ip, instr)
		if err != nil {
			e.report(instr, err)
			if e.fatal() {
				break
			}
		}
		ip = next
	}

	if e.current != nil && e.current.file != nil && e.current.file != e.DefaultFile {
		e.current.file.Close()
	}
	for name, out := range e.outputs {
		if name == "\x00default" {
			continue
		}
		if out.file != nil && out.file != e.DefaultFile {
			out.file.Close()
		}
	}

	return !e.fatal()
}

func (e *Executor) fatal() bool {
	if e.Diags.HasErrors() {
		return true
	}
	return e.Strict && len(e.Diags.Warnings) > 0
}

func (e *Executor) report(instr source.Instruction, err error) {
	if de, ok := err.(*diag.Error); ok {
		de.Pos = e.position(instr)
		de.Statement = instr.Statement
		e.Diags.Add(de)
		return
	}
	e.Diags.Add(diag.New(e.position(instr), diag.CategorySemantic, instr.Statement, "%v", err))
}

func (e *Executor) position(instr source.Instruction) diag.Position {
	file := ""
	if e.Loader != nil {
		file = e.Loader.FormatFile(instr.FileNumber)
	}
	return diag.Position{File: file, Line: instr.LineNumber, Block: instr.BlockNumber}
}

// levelModifierKeywords are the six statement kinds that accept a leading
// `global`/`parent` modifier changing which frame the declaration
// lands in.
var levelModifierKeywords = []string{"macro ", "inline ", "define ", "evaluate ", "expression ", "variable "}

// stripLevelModifier recognizes a leading `global`/`parent` token and,
// only when what follows is one of the six statements that accept a
// level modifier, strips it and reports the requested level.
func stripLevelModifier(s string) (string, symbols.Level) {
	rest, level, ok := "", symbols.LevelActive, false
	switch {
	case strings.HasPrefix(s, "global "):
		rest, level = s[len("global "):], symbols.LevelGlobal
	case strings.HasPrefix(s, "parent "):
		rest, level = s[len("parent "):], symbols.LevelParent
	default:
		return s, symbols.LevelActive
	}
	for _, kw := range levelModifierKeywords {
		if strings.HasPrefix(rest, kw) {
			ok = true
			break
		}
	}
	if !ok {
		return s, symbols.LevelActive
	}
	return rest, level
}

// step executes one statement and returns the next ip to run.
func (e *Executor) step(ip int, instr source.Instruction) (int, error) {
	s := eval.ExpandDefines(instr.Statement, evalContext{e})
	s, level := stripLevelModifier(s)

	switch {
	case s == "block {", s == "} endblock":
		return ip + 1, nil

	case strings.HasPrefix(s, "namespace ") && strings.HasSuffix(s, " {"):
		name := s[len("namespace ") : len(s)-2]
		e.Store.Scope = e.Store.Scope.Push(name)
		return ip + 1, nil
	case s == "} endnamespace":
		e.Store.Scope = e.Store.Scope.Pop()
		return ip + 1, nil

	case strings.HasPrefix(s, "function ") && strings.HasSuffix(s, " {"):
		name := s[len("function ") : len(s)-2]
		if err := e.Store.SetConstantChecked(e.qualify(name), e.PC()); err != nil {
			return ip + 1, diag.New(diag.Position{}, diag.CategorySemantic, s, "%v", err)
		}
		e.Store.Scope = e.Store.Scope.Push(name)
		return ip + 1, nil
	case s == "} endfunction":
		e.Store.Scope = e.Store.Scope.Pop()
		return ip + 1, nil

	case strings.HasPrefix(s, "if ") && strings.HasSuffix(s, " {"):
		return e.stepIf(ip, instr, s)
	case strings.HasPrefix(s, "} else if ") && strings.HasSuffix(s, " {"):
		return e.stepElseIf(ip, instr, s)
	case s == "} else {":
		return e.stepElse(ip, instr)
	case s == "} endif":
		if len(e.conditional) > 0 {
			e.conditional = e.conditional[:len(e.conditional)-1]
		}
		return ip + 1, nil

	case strings.HasPrefix(s, "while ") && strings.HasSuffix(s, " {"):
		return e.stepWhile(ip, instr, s)
	case s == "} endwhile":
		return instr.IP, nil

	case strings.HasPrefix(s, "macro ") && strings.HasSuffix(s, " {"):
		return e.defineMacro(ip, instr, s, false, level)
	case strings.HasPrefix(s, "inline ") && strings.HasSuffix(s, " {"):
		return e.defineMacro(ip, instr, s, true, level)
	case s == "} endmacro", s == "} endinline":
		frame := e.Store.PopFrame()
		if !frame.Inlined {
			e.Store.Scope = e.Store.Scope.Pop()
		}
		return frame.IP, nil

	case isRelativeRunBlock(s), isLabelBlock(s):
		return e.stepLabelBlock(ip, instr, s)
	case s == "} endconstant":
		e.Store.Scope = e.Store.Scope.Pop()
		return ip + 1, nil

	case strings.HasPrefix(s, "constant "):
		return ip + 1, e.directiveConstant(s)

	case isRelativeRun(s):
		e.stepRelativeLabel(s)
		return ip + 1, nil
	case isBareLabel(s):
		if err := e.Store.SetConstantChecked(e.qualify(s[:len(s)-1]), e.PC()); err != nil {
			return ip + 1, diag.New(diag.Position{}, diag.CategorySemantic, s, "%v", err)
		}
		return ip + 1, nil
	}

	if handled, n, err := e.dispatchDirective(ip, instr, s, level); handled {
		return n, err
	}

	if handled, next, err := e.invokeMacro(ip, s); handled {
		return next, err
	}

	w := ctxAdapter{e}
	if ok, err := e.Adapter.Assemble(s, w); ok {
		return ip + 1, err
	}
	if err := e.evaluateBareExpression(s); err == nil {
		return ip + 1, nil
	}

	return ip + 1, diag.New(diag.Position{}, diag.CategorySemantic, s, "unrecognized statement")
}

func (e *Executor) qualify(name string) string {
	if e.Store.Scope == "" {
		return name
	}
	return string(e.Store.Scope) + "." + name
}

func (e *Executor) evaluateBareExpression(s string) error {
	_, err := e.eval(s)
	return err
}

func isLabelBlock(s string) bool {
	if !strings.HasSuffix(s, ": {") {
		return false
	}
	return len(s) > len(": {")
}

// isRelativeRun reports whether s is a bare run of `-` or `+`
// characters (no trailing ` {`), e.g. `-`, `--`, `+`, `+++`.
func isRelativeRun(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case '-', '+':
	default:
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// isRelativeRunBlock reports whether s is a run of `-`/`+` followed by
// ` {`, e.g. `-- {`.
func isRelativeRunBlock(s string) bool {
	if !strings.HasSuffix(s, " {") {
		return false
	}
	return isRelativeRun(s[:len(s)-2])
}

// isBareLabel reports whether s is a plain `NAME:` label statement
// (not followed by a block body, which is handled separately).
func isBareLabel(s string) bool {
	if !strings.HasSuffix(s, ":") {
		return false
	}
	name := s[:len(s)-1]
	return name != "" && symbols.Validate(name)
}

func (e *Executor) stepRelativeLabel(s string) {
	if s[0] == '-' {
		e.relative.DefineBackward(e.Store, len(s), e.PC())
	} else {
		e.relative.DefineForward(e.Store, len(s), e.PC())
	}
}

func (e *Executor) stepLabelBlock(ip int, instr source.Instruction, s string) (int, error) {
	switch {
	case isRelativeRunBlock(s):
		e.stepRelativeLabel(s[:len(s)-2])
	default:
		name := s[:len(s)-len(": {")]
		if err := e.Store.SetConstantChecked(e.qualify(name), e.PC()); err != nil {
			return ip + 1, err
		}
		e.Store.Scope = e.Store.Scope.Push(name)
		return ip + 1, nil
	}
	return ip + 1, nil
}

func (e *Executor) directiveConstant(s string) error {
	rest := strings.TrimPrefix(s, "constant ")
	idx := strings.Index(rest, "=")
	if idx < 0 {
		return fmt.Errorf("malformed constant statement")
	}
	name := strings.TrimSpace(rest[:idx])
	expr := strings.TrimSpace(rest[idx+1:])
	v, err := e.eval(expr)
	if err != nil {
		return err
	}
	return e.Store.SetConstantChecked(e.qualify(name), v)
}

// emit advances origin (pc() follows automatically since pc()=origin+base)
// and, in the write phase only, writes the bytes to the active output
// file at the origin-derived offset — matching spec's emission rule
// that origin always advances but file I/O happens only while writing.
func (e *Executor) emit(bytes ...byte) {
	var out *output
	if e.writing {
		out = e.activeOutput()
	}
	if out != nil && out.file != nil {
		if out.pc != e.origin {
			if _, err := out.file.Seek(e.origin, 0); err == nil {
				out.pc = e.origin
			}
		}
		if n, err := out.file.Write(bytes); err == nil {
			out.pc += int64(n)
		}
	}
	e.origin += int64(len(bytes))
}

// activeOutput returns the currently open output sink: the most
// recent `output` directive's file, or the CLI-level default target
// (memoized in e.outputs under a sentinel key so its file cursor is
// tracked across calls rather than reset every time).
func (e *Executor) activeOutput() *output {
	if e.current != nil {
		return e.current
	}
	if e.DefaultFile == nil {
		return nil
	}
	const defaultKey = "\x00default"
	out, ok := e.outputs[defaultKey]
	if !ok {
		out = &output{name: defaultKey, file: e.DefaultFile, pc: -1}
		e.outputs[defaultKey] = out
	}
	return out
}

// formatDecimal mirrors bass's decimal rendering of evaluated operands.
func formatDecimal(v int64) string { return strconv.FormatInt(v, 10) }
