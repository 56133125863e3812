package exec

import (
	"strings"

	"github.com/retrotool/bassgo/internal/source"
	"github.com/retrotool/bassgo/internal/symbols"
)

// stepIf evaluates the `if` condition with the ordinary evaluator, so in
// the Query phase an unresolved identifier evaluates to pc() instead of
// failing; no stricter mode is applied. The result is pushed on the
// conditional stack either way: a false result jumps to the linked ip
// (just before the next else-if/else/endif), a true result falls through
// and later makes the matching else-if/else branches skip.
func (e *Executor) stepIf(ip int, instr source.Instruction, s string) (int, error) {
	expr := s[len("if ") : len(s)-2]
	cond, err := e.eval(expr)
	if err != nil {
		return ip + 1, err
	}
	taken := cond != 0
	e.conditional = append(e.conditional, taken)
	if !taken {
		return instr.IP + 1, nil
	}
	return ip + 1, nil
}

// stepElseIf skips to its linked ip (the next else/else-if/endif) when
// an earlier branch of the chain was taken; otherwise (control arrived
// by a false branch's jump) it evaluates its own condition, records the
// result, and either enters its body or jumps on to the next link.
func (e *Executor) stepElseIf(ip int, instr source.Instruction, s string) (int, error) {
	if len(e.conditional) > 0 && e.conditional[len(e.conditional)-1] {
		return instr.IP + 1, nil
	}
	expr := s[len("} else if ") : len(s)-2]
	cond, err := e.eval(expr)
	if err != nil {
		return ip + 1, err
	}
	taken := cond != 0
	if len(e.conditional) > 0 {
		e.conditional[len(e.conditional)-1] = taken
	}
	if !taken {
		return instr.IP + 1, nil
	}
	return ip + 1, nil
}

// stepElse runs only when no earlier if/else-if branch in this chain
// matched; otherwise it skips the else body entirely via the analyzer-
// linked ip, landing on the chain's endif.
func (e *Executor) stepElse(ip int, instr source.Instruction) (int, error) {
	if len(e.conditional) > 0 && e.conditional[len(e.conditional)-1] {
		return instr.IP + 1, nil
	}
	return ip + 1, nil
}

// stepWhile evaluates the loop condition each time control reaches the
// opener; a false result jumps past the linked closer.
func (e *Executor) stepWhile(ip int, instr source.Instruction, s string) (int, error) {
	expr := s[len("while ") : len(s)-2]
	cond, err := e.eval(expr)
	if err != nil {
		return ip + 1, err
	}
	if cond == 0 {
		return instr.IP + 1, nil
	}
	return ip + 1, nil
}

// defineMacro parses `macro name(params) {` / `inline name(params) {`
// and registers it without executing the body; execution resumes
// after the linked endmacro/endinline.
func (e *Executor) defineMacro(ip int, instr source.Instruction, s string, inlined bool, level symbols.Level) (int, error) {
	keyword := "macro "
	if inlined {
		keyword = "inline "
	}
	body := s[len(keyword) : len(s)-2]
	name, rawParams, err := parseSignature(body)
	if err != nil {
		return instr.IP + 1, err
	}

	params := make([]symbols.Param, len(rawParams))
	for i, raw := range rawParams {
		params[i] = parseParam(raw)
	}

	m := &symbols.Macro{
		Name:    e.qualify(name),
		Inlined: inlined,
		Params:  params,
		IP:      ip + 1,
	}
	e.Store.SetMacro(level, m)

	return instr.IP + 1, nil
}

// parseParam recognizes the optional `define`/`string`/`evaluate`/
// `variable` type tag prefixing a macro parameter name; `define`
// (raw-text substitution) is the default when no tag is given.
func parseParam(raw string) symbols.Param {
	fields := strings.Fields(raw)
	if len(fields) == 2 {
		switch fields[0] {
		case "string":
			return symbols.Param{Name: fields[1], Kind: symbols.ParamString}
		case "evaluate":
			return symbols.Param{Name: fields[1], Kind: symbols.ParamEvaluate}
		case "variable":
			return symbols.Param{Name: fields[1], Kind: symbols.ParamVariable}
		case "define":
			return symbols.Param{Name: fields[1], Kind: symbols.ParamDefine}
		}
	}
	return symbols.Param{Name: raw, Kind: symbols.ParamDefine}
}

// parseSignature splits `name(param, param, ...)` into its name and
// raw parameter text list.
func parseSignature(body string) (string, []string, error) {
	open := strings.IndexByte(body, '(')
	if open < 0 || !strings.HasSuffix(body, ")") {
		return "", nil, errMalformed(body)
	}
	name := body[:open]
	raw := body[open+1 : len(body)-1]
	if strings.TrimSpace(raw) == "" {
		return name, nil, nil
	}
	return name, splitTopLevel(raw, ','), nil
}

func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	out = append(out, strings.TrimSpace(s[start:]))
	return out
}

func errMalformed(body string) error {
	return &malformedError{body}
}

type malformedError struct{ body string }

func (m *malformedError) Error() string { return "malformed macro/inline signature: " + m.body }
