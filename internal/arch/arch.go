// Package arch defines the Architecture Adapter contract: the single
// external collaborator the executor defers to for any statement it
// does not itself recognize as a directive or control-flow form.
// Ported from original_source/tools/bass/bass/architecture/architecture.h
// — a base class whose assemble() always returns false, letting a
// concrete architecture override only what it understands.
package arch

// Adapter translates architecture-specific mnemonics (`lda #$00`,
// `mov r0, r1`, ...) into emitted bytes. Assemble reports whether it
// recognized statement; when it returns false the executor evaluates the
// statement as a bare expression and reports it as unrecognized only if
// that fails too.
type Adapter interface {
	// Assemble attempts to encode statement at the writer's current
	// address. It returns false (no error) when the statement is not
	// an instruction this architecture understands.
	Assemble(statement string, w Writer) (bool, error)

	// Name identifies the architecture, e.g. for the `architecture`
	// directive's diagnostic messages and the driver's default config.
	Name() string
}

// Writer is the subset of the executor/driver bassgo's architecture
// adapters need: emitting bytes, reading the current address and
// endianness, and evaluating an operand expression against the live
// symbol store — mirroring the self-referencing Bass& passed to bass's
// Architecture, whose assemble() methods call back into pc()/endian()/
// evaluate()/write() on the same object (spec.md §4.7).
type Writer interface {
	PC() int64
	Emit(bytes ...byte)
	Endian() Endian

	// Evaluate resolves an operand expression (a label, a define, an
	// arithmetic expression, ...) the same way a `db`/`dw` item would,
	// including the Query-phase forward-reference placeholder and the
	// Write-phase real resolution.
	Evaluate(expr string) (int64, error)
}

// Endian selects multi-byte emission order for an architecture.
type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
)

// Base is an embeddable no-op Adapter: Assemble always reports that it
// did not recognize the statement, matching the original base class.
type Base struct {
	ArchName string
}

func (b Base) Assemble(string, Writer) (bool, error) { return false, nil }
func (b Base) Name() string                          { return b.ArchName }
