// Package source implements the assembler's Source Loader: it reads
// files from disk, strips comments, splits lines into semicolon
// statements, expands include directives, and records provenance for
// every statement it produces.
package source

// Instruction is one statement of the flattened program, annotated with
// enough provenance for diagnostics and with an analyzer-computed IP
// link used to jump over block bodies during execution.
type Instruction struct {
	Statement   string
	FileNumber  int
	LineNumber  int
	BlockNumber int
	IP          int
}
