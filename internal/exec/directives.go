package exec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/retrotool/bassgo/internal/arch"
	"github.com/retrotool/bassgo/internal/diag"
	"github.com/retrotool/bassgo/internal/eval"
	"github.com/retrotool/bassgo/internal/source"
	"github.com/retrotool/bassgo/internal/symbols"
)

// directiveWidths maps each data-emission directive to its byte width.
var directiveWidths = map[string]int{"db": 1, "dw": 2, "dl": 3, "dd": 4, "dq": 8}

// dispatchDirective recognizes and executes one of the core assembler
// directives (everything in spec.md §4.6 not already handled directly
// by step() as control flow or block bookkeeping). It reports false
// when s is not a directive this table understands, letting step()
// fall through to macro invocation and then the architecture adapter.
func (e *Executor) dispatchDirective(ip int, instr source.Instruction, s string, level symbols.Level) (bool, int, error) {
	switch {
	case strings.HasPrefix(s, "architecture "):
		return true, ip + 1, e.directiveArchitecture(strings.TrimPrefix(s, "architecture "))
	case strings.HasPrefix(s, "endian "):
		return true, ip + 1, e.directiveEndian(strings.TrimPrefix(s, "endian "))
	case strings.HasPrefix(s, "origin "):
		return true, ip + 1, e.directiveOrigin(strings.TrimPrefix(s, "origin "))
	case strings.HasPrefix(s, "base "):
		return true, ip + 1, e.directiveBase(strings.TrimPrefix(s, "base "))
	case strings.HasPrefix(s, "enqueue "):
		return true, ip + 1, e.directiveEnqueue(strings.TrimPrefix(s, "enqueue "))
	case strings.HasPrefix(s, "dequeue "):
		return true, ip + 1, e.directiveDequeue(strings.TrimPrefix(s, "dequeue "))
	case strings.HasPrefix(s, "output "):
		return true, ip + 1, e.directiveOutput(instr, strings.TrimPrefix(s, "output "))
	case strings.HasPrefix(s, "insert "):
		return true, ip + 1, e.directiveInsert(instr, strings.TrimPrefix(s, "insert "))
	case strings.HasPrefix(s, "fill "):
		return true, ip + 1, e.directiveFill(strings.TrimPrefix(s, "fill "))
	case strings.HasPrefix(s, "map "):
		return true, ip + 1, e.directiveMap(strings.TrimPrefix(s, "map "))
	case strings.HasPrefix(s, "print "):
		return true, ip + 1, e.directivePrint(strings.TrimPrefix(s, "print "))
	case strings.HasPrefix(s, "notice "):
		return true, ip + 1, e.directiveNotice(instr, strings.TrimPrefix(s, "notice "))
	case strings.HasPrefix(s, "warning "):
		return true, ip + 1, e.directiveWarning(instr, strings.TrimPrefix(s, "warning "))
	case strings.HasPrefix(s, "error "):
		return true, ip + 1, e.directiveError(instr, strings.TrimPrefix(s, "error "))
	case strings.HasPrefix(s, "define "):
		return true, ip + 1, e.directiveDefine(level, strings.TrimPrefix(s, "define "))
	case strings.HasPrefix(s, "expression "):
		return true, ip + 1, e.directiveExpression(level, strings.TrimPrefix(s, "expression "))
	case strings.HasPrefix(s, "evaluate "):
		return true, ip + 1, e.directiveEvaluate(level, strings.TrimPrefix(s, "evaluate "))
	case strings.HasPrefix(s, "variable "):
		return true, ip + 1, e.directiveVariable(level, strings.TrimPrefix(s, "variable "))
	}
	for width := range directiveWidths {
		if strings.HasPrefix(s, width+" ") {
			return true, ip + 1, e.directiveData(width, strings.TrimPrefix(s, width+" "))
		}
	}
	return false, ip, nil
}

func splitItems(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return eval.SplitArgs(s)
}

// directiveArchitecture installs the named adapter. Table-file parsing
// is out of scope (spec.md §1); the only concrete adapters available
// are the no-op base and the demonstrative Generic8.
func (e *Executor) directiveArchitecture(name string) error {
	name = strings.TrimSpace(name)
	switch name {
	case "none", "":
		e.Adapter = arch.Base{ArchName: "none"}
	case "generic8":
		e.Adapter = arch.NewGeneric8()
	default:
		e.Adapter = arch.Base{ArchName: name}
	}
	return nil
}

func (e *Executor) directiveEndian(arg string) error {
	switch strings.TrimSpace(arg) {
	case "lsb":
		e.endian = arch.LittleEndian
	case "msb":
		e.endian = arch.BigEndian
	default:
		return fmt.Errorf("invalid endian mode: %s", arg)
	}
	return nil
}

func (e *Executor) directiveOrigin(arg string) error {
	v, err := e.eval(arg)
	if err != nil {
		return err
	}
	e.origin = v
	return nil
}

// directiveBase sets base such that pc() becomes exactly the evaluated
// operand (core.cpp: `base = evaluate(s) - origin`), not the raw delta.
func (e *Executor) directiveBase(arg string) error {
	v, err := e.eval(arg)
	if err != nil {
		return err
	}
	e.base = v - e.origin
	return nil
}

func (e *Executor) directiveEnqueue(arg string) error {
	for _, item := range splitItems(arg) {
		kind := strings.TrimSpace(item)
		switch kind {
		case "origin", "base", "pc":
		default:
			return fmt.Errorf("enqueue: unknown item %q", kind)
		}
		e.stack = append(e.stack, addressQueueEntry{kind: kind, origin: e.origin, base: e.base})
	}
	return nil
}

func (e *Executor) directiveDequeue(arg string) error {
	for range splitItems(arg) {
		if len(e.stack) == 0 {
			return fmt.Errorf("dequeue: queue is empty")
		}
		top := e.stack[len(e.stack)-1]
		e.stack = e.stack[:len(e.stack)-1]
		switch top.kind {
		case "origin":
			e.origin = top.origin
		case "base":
			e.base = top.base
		case "pc":
			e.origin, e.base = top.origin, top.base
		}
	}
	return nil
}

// directiveOutput opens (or switches to) the named target file,
// resolved relative to the directive's own source file's directory.
// Only the write phase performs real file I/O; the query phase merely
// tracks which sink is active.
func (e *Executor) directiveOutput(instr source.Instruction, arg string) error {
	items := splitItems(arg)
	if len(items) == 0 {
		return fmt.Errorf("malformed output statement")
	}
	path, err := e.unquoteRequired(items[0])
	if err != nil {
		return err
	}
	create := len(items) > 1 && strings.TrimSpace(items[1]) == "create"

	if !e.writing {
		e.current = &output{name: path}
		return nil
	}
	if out, ok := e.outputs[path]; ok {
		e.current = out
		return nil
	}

	dir := filepath.Dir(e.Loader.FormatFile(instr.FileNumber))
	full := filepath.Join(dir, path)
	flags := os.O_RDWR | os.O_CREATE
	if create {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(full, flags, 0o644) // #nosec G304 -- user-directed output path
	if err != nil {
		return diag.NewWarning(diag.Position{}, diag.CategoryIO, "", "unable to open target %q: %v", full, err)
	}
	out := &output{name: path, file: f, pc: -1}
	e.outputs[path] = out
	e.current = out
	return nil
}

// directiveInsert copies bytes from a file into the active output.
// Length is determined identically in both phases so origin advances
// the same amount whether or not the bytes are actually written.
func (e *Executor) directiveInsert(instr source.Instruction, arg string) error {
	items := splitItems(arg)
	if len(items) == 0 {
		return fmt.Errorf("malformed insert statement")
	}
	idx := 0
	var name string
	if !strings.HasPrefix(strings.TrimSpace(items[0]), "\"") {
		name = strings.TrimSpace(items[0])
		idx = 1
	}
	if idx >= len(items) {
		return fmt.Errorf("malformed insert statement")
	}
	path, err := e.unquoteRequired(items[idx])
	if err != nil {
		return err
	}

	var offset, length int64 = 0, -1
	if idx+1 < len(items) {
		if offset, err = e.eval(items[idx+1]); err != nil {
			return err
		}
	}
	if idx+2 < len(items) {
		if length, err = e.eval(items[idx+2]); err != nil {
			return err
		}
	}

	dir := filepath.Dir(e.Loader.FormatFile(instr.FileNumber))
	full := filepath.Join(dir, path)
	data, err := os.ReadFile(full) // #nosec G304 -- user-directed insert path
	if err != nil {
		return diag.New(diag.Position{}, diag.CategoryIO, "", "missing insert file: %s", full)
	}
	if offset < 0 {
		offset = 0
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	data = data[offset:]
	if length >= 0 && length < int64(len(data)) {
		data = data[:length]
	}

	if name != "" {
		if err := e.Store.SetConstantChecked(e.qualify(name), e.PC()); err != nil {
			return err
		}
		if err := e.Store.SetConstantChecked(e.qualify(name)+".size", int64(len(data))); err != nil {
			return err
		}
	}
	e.emit(data...)
	return nil
}

func (e *Executor) directiveFill(arg string) error {
	items := splitItems(arg)
	if len(items) == 0 {
		return fmt.Errorf("malformed fill statement")
	}
	n, err := e.eval(items[0])
	if err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("fill: negative count %d", n)
	}
	var v int64
	if len(items) > 1 {
		if v, err = e.eval(items[1]); err != nil {
			return err
		}
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(v)
	}
	e.emit(buf...)
	return nil
}

// directiveMap implements `map 'c'[, V[, L]]`, remapping the character
// translation table used by quoted db/dw/... items.
func (e *Executor) directiveMap(arg string) error {
	items := splitItems(arg)
	if len(items) == 0 {
		return fmt.Errorf("malformed map statement")
	}
	c, err := e.eval(items[0])
	if err != nil {
		return err
	}
	v := c
	if len(items) > 1 {
		if v, err = e.eval(items[1]); err != nil {
			return err
		}
	}
	length := int64(1)
	if len(items) > 2 {
		if length, err = e.eval(items[2]); err != nil {
			return err
		}
	}
	for k := int64(0); k < length; k++ {
		e.stringTable[rune(c+k)] = v + k
	}
	return nil
}

// directiveData implements db/dw/dl/dd/dq: each item is either a
// quoted string (each character translated through stringTable and
// emitted individually) or an expression evaluated to an integer.
func (e *Executor) directiveData(keyword, arg string) error {
	width := directiveWidths[keyword]
	items := splitItems(arg)
	for _, item := range items {
		item = strings.TrimSpace(item)
		if text, ok := unquoteMaybe(item); ok {
			for _, r := range text {
				e.emitWidth(e.translateRune(r), width)
			}
			continue
		}
		v, err := e.eval(item)
		if err != nil {
			return err
		}
		e.emitWidth(v, width)
	}
	return nil
}

func (e *Executor) translateRune(r rune) int64 {
	if v, ok := e.stringTable[r]; ok {
		return v
	}
	return int64(r)
}

// emitWidth encodes v into width bytes, little-endian, then reverses
// the buffer for big-endian mode, and hands it to emit.
func (e *Executor) emitWidth(v int64, width int) {
	buf := make([]byte, width)
	for i := 0; i < width; i++ {
		buf[i] = byte(v >> uint(8*i))
	}
	if e.endian == arch.BigEndian {
		for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
			buf[i], buf[j] = buf[j], buf[i]
		}
	}
	e.emit(buf...)
}

// directivePrint renders a sequence of items (plain expressions,
// quoted text, or `binary:`/`hex:`/`char:` casts) to standard error.
// Diagnostics from print/notice/warning/error are only realized in the
// write phase, matching the query phase's pure-layout contract.
func (e *Executor) directivePrint(arg string) error {
	if !e.writing {
		return nil
	}
	var sb strings.Builder
	for _, item := range splitItems(arg) {
		text, err := e.formatPrintItem(strings.TrimSpace(item))
		if err != nil {
			return err
		}
		sb.WriteString(text)
	}
	fmt.Fprintln(os.Stderr, sb.String())
	return nil
}

func (e *Executor) formatPrintItem(item string) (string, error) {
	switch {
	case strings.HasPrefix(item, "binary:"):
		v, err := e.eval(strings.TrimPrefix(item, "binary:"))
		if err != nil {
			return "", err
		}
		return formatBinary(v), nil
	case strings.HasPrefix(item, "hex:"):
		v, err := e.eval(strings.TrimPrefix(item, "hex:"))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%x", v), nil
	case strings.HasPrefix(item, "char:"):
		v, err := e.eval(strings.TrimPrefix(item, "char:"))
		if err != nil {
			return "", err
		}
		return string(rune(v)), nil
	}
	if text, ok := unquoteMaybe(item); ok {
		return text, nil
	}
	v, err := e.eval(item)
	if err != nil {
		return "", err
	}
	return formatDecimal(v), nil
}

func formatBinary(v int64) string {
	if v == 0 {
		return "0"
	}
	u := uint64(v)
	var buf [64]byte
	i := 64
	for u > 0 {
		i--
		buf[i] = byte('0' + u&1)
		u >>= 1
	}
	return string(buf[i:])
}

func (e *Executor) directiveNotice(instr source.Instruction, arg string) error {
	if !e.writing {
		return nil
	}
	msg := unquoteOrRaw(arg)
	e.Diags.Add(diag.NewNotice(e.position(instr), instr.Statement, "%s", msg))
	return nil
}

func (e *Executor) directiveWarning(instr source.Instruction, arg string) error {
	if !e.writing {
		return nil
	}
	msg := unquoteOrRaw(arg)
	e.Diags.Add(diag.NewWarning(e.position(instr), diag.CategorySemantic, instr.Statement, "%s", msg))
	return nil
}

func (e *Executor) directiveError(instr source.Instruction, arg string) error {
	if !e.writing {
		return nil
	}
	msg := unquoteOrRaw(arg)
	return diag.New(e.position(instr), diag.CategorySemantic, instr.Statement, "%s", msg)
}

func unquoteOrRaw(s string) string {
	s = strings.TrimSpace(s)
	if text, ok := unquoteMaybe(s); ok {
		return text
	}
	return s
}

func (e *Executor) unquoteRequired(s string) (string, error) {
	s = strings.TrimSpace(s)
	text, ok := unquoteMaybe(s)
	if !ok {
		return "", fmt.Errorf("expected quoted string, got %q", s)
	}
	return text, nil
}

// unquoteMaybe strips a `"..."` string literal's delimiters and
// resolves its `\s \d \c \b \n \\` escapes; reports false when s is
// not quoted.
func unquoteMaybe(s string) (string, bool) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", false
	}
	inner := s[1 : len(s)-1]
	var sb strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\\' && i+1 < len(inner) {
			if v, ok := eval.EscapeValue(inner[i+1]); ok {
				sb.WriteByte(byte(v))
				i++
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String(), true
}

// parseNameParamsValue splits `name(p1, p2) value text...` or
// `name value text...` into its name, optional parameter list, and
// value text, shared by `define` and `expression`.
func parseNameParamsValue(rest string) (name string, params []string, value string, err error) {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", nil, "", fmt.Errorf("malformed declaration")
	}
	idx := strings.IndexAny(rest, " (")
	if idx < 0 {
		return rest, nil, "", nil
	}
	name = rest[:idx]
	if rest[idx] == '(' {
		close := strings.IndexByte(rest, ')')
		if close < 0 {
			return "", nil, "", fmt.Errorf("malformed parameter list: %s", rest)
		}
		paramsRaw := strings.TrimSpace(rest[idx+1 : close])
		if paramsRaw != "" {
			params = eval.SplitArgs(paramsRaw)
		}
		value = strings.TrimSpace(rest[close+1:])
		return name, params, value, nil
	}
	value = strings.TrimSpace(rest[idx+1:])
	return name, nil, value, nil
}

func (e *Executor) directiveDefine(level symbols.Level, arg string) error {
	name, params, value, err := parseNameParamsValue(arg)
	if err != nil {
		return err
	}
	e.Store.SetDefine(level, &symbols.Define{Name: e.qualify(name), Params: params, Value: value})
	return nil
}

func (e *Executor) directiveExpression(level symbols.Level, arg string) error {
	name, params, value, err := parseNameParamsValue(arg)
	if err != nil {
		return err
	}
	e.Store.SetExpression(level, &symbols.Expression{Name: e.qualify(name), Params: params, Body: value})
	return nil
}

// directiveEvaluate implements the `evaluate NAME = EXPR` statement: it
// computes EXPR immediately and binds NAME as a Variable, so later bare
// references to NAME resolve through Eval's variable/constant lookup
// rather than requiring `{NAME}` define-substitution.
func (e *Executor) directiveEvaluate(level symbols.Level, arg string) error {
	return e.bindVariableStatement(level, arg)
}

func (e *Executor) directiveVariable(level symbols.Level, arg string) error {
	return e.bindVariableStatement(level, arg)
}

func (e *Executor) bindVariableStatement(level symbols.Level, arg string) error {
	idx := strings.Index(arg, "=")
	if idx < 0 {
		return fmt.Errorf("malformed variable/evaluate statement: %s", arg)
	}
	name := strings.TrimSpace(arg[:idx])
	expr := strings.TrimSpace(arg[idx+1:])
	v, err := e.eval(expr)
	if err != nil {
		return err
	}
	e.Store.SetVariable(level, &symbols.Variable{Name: e.qualify(name), Value: v})
	return nil
}

// invokeMacro recognizes a `name(args...)` call, looks up a macro of
// matching name and arity using the raw (unqualified) name so the
// store's scope-prefix walk resolves it from the call site's own
// scope, and if found pushes a frame and jumps into its body.
func (e *Executor) invokeMacro(ip int, s string) (bool, int, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return false, ip, nil
	}
	name := s[:open]
	if name == "" || !symbols.Validate(name) {
		return false, ip, nil
	}
	rawArgs := s[open+1 : len(s)-1]
	args := splitItems(rawArgs)

	macro, ok := e.Store.FindMacro(name, len(args))
	if !ok {
		return false, ip, nil
	}

	e.Store.PushFrame(ip+1, macro.Inlined)
	if !macro.Inlined {
		e.Store.Scope = e.Store.Scope.Push(name)
	}

	e.macroCounter++
	e.Store.SetDefine(symbols.LevelInline, &symbols.Define{
		Name:  "#",
		Value: fmt.Sprintf("_%d_", e.macroCounter),
	})

	for i, param := range macro.Params {
		if i >= len(args) {
			break
		}
		if err := e.bindMacroParam(param, args[i]); err != nil {
			return true, ip + 1, err
		}
	}

	return true, macro.IP, nil
}

func (e *Executor) bindMacroParam(param symbols.Param, argRaw string) error {
	argRaw = strings.TrimSpace(argRaw)
	switch param.Kind {
	case symbols.ParamString:
		text, ok := unquoteMaybe(argRaw)
		if !ok {
			text = argRaw
		}
		e.Store.SetDefine(symbols.LevelInline, &symbols.Define{Name: param.Name, Value: text})
	case symbols.ParamEvaluate:
		v, err := e.eval(argRaw)
		if err != nil {
			return err
		}
		e.Store.SetDefine(symbols.LevelInline, &symbols.Define{Name: param.Name, Value: eval.FormatInt(v)})
	case symbols.ParamVariable:
		v, err := e.eval(argRaw)
		if err != nil {
			return err
		}
		e.Store.SetVariable(symbols.LevelInline, &symbols.Variable{Name: param.Name, Value: v})
	default: // symbols.ParamDefine
		e.Store.SetDefine(symbols.LevelInline, &symbols.Define{Name: param.Name, Value: argRaw})
	}
	return nil
}
