package eval

import (
	"strconv"
	"strings"

	"github.com/retrotool/bassgo/internal/symbols"
)

const maxDefineSubstitutions = 256

// ExpandDefines performs bass's evaluateDefines pass: raw statement
// text substitution for `{NAME}`, `{NAME(args)}` and `{defined NAME}`
// references, done before the statement is tokenized into an
// expression tree. It repeatedly substitutes the leftmost innermost
// brace pair that names a known define until no such reference remains
// (a fixed point); a reference to an unknown name is left in place.
func ExpandDefines(statement string, ctx Context) string {
	for i := 0; i < maxDefineSubstitutions; i++ {
		next, changed := substituteOnce(statement, ctx)
		if !changed {
			return next
		}
		statement = next
	}
	return statement
}

// substituteOnce finds the innermost `{...}` brace pair (the one
// whose `{` was most recently opened among currently-unclosed braces)
// and replaces it with its expansion. A pair whose expansion is its own
// text (an unknown name) is skipped and the scan goes on.
func substituteOnce(s string, ctx Context) (string, bool) {
	var openStack []int
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			openStack = append(openStack, i)
		case '}':
			if len(openStack) == 0 {
				continue
			}
			open := openStack[len(openStack)-1]
			openStack = openStack[:len(openStack)-1]
			inner := s[open+1 : i]
			replacement := expandReference(inner, ctx)
			if replacement == s[open:i+1] {
				continue
			}
			return s[:open] + replacement + s[i+1:], true
		}
	}
	return s, false
}

// expandReference resolves the text between one matched `{` `}` pair:
// `defined NAME`, `NAME(arg, arg, ...)`, or a bare `NAME`. Mirrors
// core.cpp's evaluateDefines: parameters bind per their `define`/
// `string`/`evaluate` type tag in a fresh inlined frame, exactly like a
// macro's parameter binding, before the define's value is itself
// recursively expanded while that frame is still active.
func expandReference(inner string, ctx Context) string {
	inner = strings.TrimSpace(inner)
	store := ctx.Store()

	if rest, ok := strings.CutPrefix(inner, "defined "); ok {
		name := strings.TrimSpace(rest)
		_, isDefine := store.FindDefine(name)
		_, isConstant := store.FindConstant(name)
		_, isVariable := store.FindVariable(name)
		if isDefine || isConstant || isVariable {
			return "1"
		}
		return "0"
	}

	name := inner
	var args []string
	if idx := strings.IndexByte(inner, '('); idx >= 0 && strings.HasSuffix(inner, ")") {
		name = inner[:idx]
		args = splitArgs(inner[idx+1 : len(inner)-1])
	}

	d, ok := store.FindDefine(name)
	if !ok {
		return "{" + inner + "}"
	}

	if len(d.Params) == 0 {
		return ExpandDefines(d.Value, ctx)
	}

	store.PushFrame(0, true)
	for i, raw := range d.Params {
		if i >= len(args) {
			break
		}
		bindDefineParam(store, raw, args[i], ctx)
	}
	value := ExpandDefines(d.Value, ctx)
	store.PopFrame()
	return value
}

// bindDefineParam binds one define-call argument under the `define`
// (raw text, default), `string` (unquoted text literal) or `evaluate`
// (immediately-computed integer) tag, the same three tags a macro
// parameter accepts.
func bindDefineParam(store *symbols.Store, raw, arg string, ctx Context) {
	fields := strings.Fields(strings.TrimSpace(raw))
	tag, name := "define", raw
	if len(fields) == 2 {
		switch fields[0] {
		case "define", "string", "evaluate":
			tag, name = fields[0], fields[1]
		}
	}

	switch tag {
	case "string":
		text := arg
		if u, ok := unquoteDefineArg(arg); ok {
			text = u
		}
		store.SetDefine(symbols.LevelInline, &symbols.Define{Name: name, Value: text})
	case "evaluate":
		v, err := EvalString(arg, ctx)
		if err != nil {
			v = 0
		}
		store.SetDefine(symbols.LevelInline, &symbols.Define{Name: name, Value: FormatInt(v)})
	default: // "define"
		store.SetDefine(symbols.LevelInline, &symbols.Define{Name: name, Value: arg})
	}
}

// unquoteDefineArg strips a `"..."` string literal's delimiters and
// resolves its escapes, matching bass's text(). Reports false when arg
// is not quoted, in which case the caller uses it as-is.
func unquoteDefineArg(arg string) (string, bool) {
	arg = strings.TrimSpace(arg)
	if len(arg) < 2 || arg[0] != '"' || arg[len(arg)-1] != '"' {
		return "", false
	}
	inner := arg[1 : len(arg)-1]
	var sb strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\\' && i+1 < len(inner) {
			if v, ok := EscapeValue(inner[i+1]); ok {
				sb.WriteByte(byte(v))
				i++
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String(), true
}

// SplitArgs splits a comma-separated list on commas, respecting nested
// parentheses and quotes. Shared by define-call argument splitting,
// macro-call argument splitting, and db/print item lists.
func SplitArgs(s string) []string { return splitArgs(s) }

// splitArgs splits a define-call argument list on commas, respecting
// nested parentheses and quotes.
func splitArgs(s string) []string {
	var args []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			args = append(args, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if start < len(s) {
		args = append(args, strings.TrimSpace(s[start:]))
	}
	return args
}

// FormatInt renders v the way db/dw/dl emit decimal arguments back
// into expanded define bodies.
func FormatInt(v int64) string { return strconv.FormatInt(v, 10) }
