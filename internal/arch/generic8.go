package arch

import "strings"

// Generic8 is a small demonstration architecture: a single-address-space
// 8-bit machine with a handful of mnemonics, dispatched from a table the
// way the pack's table-driven m68k assembler dispatches its opcodes. It
// exists to exercise the Adapter contract end to end; real targets plug
// in their own Adapter the same way.
type Generic8 struct {
	Base
}

// NewGeneric8 creates the demonstration architecture adapter.
func NewGeneric8() *Generic8 {
	return &Generic8{Base: Base{ArchName: "generic8"}}
}

// operandWidth is the number of bytes an instruction's operand occupies
// following its opcode byte, in the writer's byte order; 0 means the
// mnemonic takes no operand.
type operandWidth int

const (
	noOperand    operandWidth = 0
	byteOperand  operandWidth = 1
	wordOperand  operandWidth = 2
)

type generic8Op struct {
	mnemonic string
	opcode   byte
	width    operandWidth
}

// jmp/jz carry a 2-byte address operand so a forward label reference
// through them exercises the same multi-byte, endian-aware emission a
// real 3-byte absolute jump would (spec.md §8 scenario d).
var generic8Table = []generic8Op{
	{"nop", 0x00, noOperand},
	{"halt", 0xff, noOperand},
	{"lda", 0x10, byteOperand},
	{"sta", 0x11, byteOperand},
	{"add", 0x20, byteOperand},
	{"sub", 0x21, byteOperand},
	{"jmp", 0x30, wordOperand},
	{"jz", 0x31, wordOperand},
}

// Assemble recognizes `mnemonic` and `mnemonic operand` forms from the
// table above; anything else is reported unrecognized. The operand, if
// any, is evaluated as a full expression (not just a literal) via
// w.Evaluate, so labels, defines and arithmetic all work as jump/load
// targets exactly as they would in a `db`/`dw` item.
func (g *Generic8) Assemble(statement string, w Writer) (bool, error) {
	mnemonic, operand, hasOperand := splitMnemonic(statement)

	for _, op := range generic8Table {
		if op.mnemonic != mnemonic {
			continue
		}
		if op.width == noOperand {
			if hasOperand {
				return true, errUnexpectedOperand(mnemonic)
			}
			w.Emit(op.opcode)
			return true, nil
		}
		if !hasOperand {
			return true, errOperandRequired(mnemonic)
		}
		v, err := w.Evaluate(operand)
		if err != nil {
			return true, err
		}
		w.Emit(op.opcode)
		emitOperand(w, v, int(op.width))
		return true, nil
	}
	return false, nil
}

// splitMnemonic separates the leading mnemonic token from the rest of
// the statement (its operand expression, if any), without splitting the
// operand itself on internal spaces the way strings.Fields would.
func splitMnemonic(statement string) (mnemonic, operand string, hasOperand bool) {
	statement = strings.TrimSpace(statement)
	idx := strings.IndexByte(statement, ' ')
	if idx < 0 {
		return strings.ToLower(statement), "", false
	}
	return strings.ToLower(statement[:idx]), strings.TrimSpace(statement[idx+1:]), true
}

// emitOperand writes v as width little-endian bytes, then reverses the
// buffer when the adapter's own byte order is big-endian.
func emitOperand(w Writer, v int64, width int) {
	buf := make([]byte, width)
	for i := 0; i < width; i++ {
		buf[i] = byte(v >> uint(8*i))
	}
	if w.Endian() == BigEndian {
		for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
			buf[i], buf[j] = buf[j], buf[i]
		}
	}
	w.Emit(buf...)
}

func errOperandRequired(mnemonic string) error {
	return &adapterError{msg: mnemonic + " requires an operand"}
}

func errUnexpectedOperand(mnemonic string) error {
	return &adapterError{msg: mnemonic + " takes no operand"}
}

type adapterError struct{ msg string }

func (e *adapterError) Error() string { return e.msg }
