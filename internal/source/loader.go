package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/retrotool/bassgo/internal/diag"
)

// Loader reads assembly source files into a flat Program, expanding
// include directives recursively and recording (file, line, block)
// provenance for every statement — see original bass's Bass::source.
type Loader struct {
	Program   []Instruction
	Filenames []string

	includeStack []string
}

// New creates an empty Loader.
func New() *Loader {
	return &Loader{}
}

// Load reads filename (and everything it includes) and appends the
// resulting statements to l.Program. Mirrors Bass::source: a missing
// file is reported as a warning-kind *diag.Error returned to the caller,
// which decides whether to go on; a missing include stops the load of
// the file that includes it.
func (l *Loader) Load(filename string) error {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return err
	}
	for _, included := range l.includeStack {
		if included == abs {
			return diag.New(Position0(), diag.CategoryStructural, "",
				"circular include detected: %s", filename)
		}
	}

	data, err := os.ReadFile(filename) // #nosec G304 -- user-provided source path
	if err != nil {
		return diag.NewWarning(Position0(), diag.CategoryIO, "",
			"source file not found: %s", filename)
	}

	fileNumber := len(l.Filenames)
	l.Filenames = append(l.Filenames, filename)

	l.includeStack = append(l.includeStack, abs)
	defer func() { l.includeStack = l.includeStack[:len(l.includeStack)-1] }()

	text := strings.NewReplacer("\t", " ", "\r", " ").Replace(string(data))
	lines := strings.Split(text, "\n")

	for lineIdx, line := range lines {
		if idx := quoteAwareIndex(line, "//"); idx >= 0 {
			line = line[:idx]
		}

		blocks := quoteAwareSplit(line, ';')
		for blockIdx, block := range blocks {
			statement := collapseWhitespace(strings.TrimSpace(block))
			if statement == "" {
				continue
			}

			if name, ok := matchInclude(statement); ok {
				includePath := filepath.Join(filepath.Dir(filename), name)
				if err := l.Load(includePath); err != nil {
					return err
				}
				continue
			}

			l.Program = append(l.Program, Instruction{
				Statement:   statement,
				FileNumber:  fileNumber,
				LineNumber:  lineIdx + 1,
				BlockNumber: blockIdx + 1,
			})
		}
	}

	return nil
}

// Position0 is used for diagnostics raised before any instruction has
// executed (e.g. a missing top-level source file).
func Position0() diag.Position { return diag.Position{} }

// matchInclude recognizes `include "path"` and returns the quoted path.
func matchInclude(statement string) (string, bool) {
	const prefix = "include \""
	if !strings.HasPrefix(statement, prefix) || !strings.HasSuffix(statement, "\"") {
		return "", false
	}
	inner := statement[len(prefix) : len(statement)-1]
	return inner, true
}

// quoteAwareIndex finds the first occurrence of sep outside of a quoted
// region (single or double quotes), or -1 if none exists.
func quoteAwareIndex(s, sep string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote == 0 {
			if c == '"' || c == '\'' {
				quote = c
			} else if strings.HasPrefix(s[i:], sep) {
				return i
			}
		} else if c == quote {
			quote = 0
		}
	}
	return -1
}

// quoteAwareSplit splits s on sep, ignoring occurrences inside quotes.
func quoteAwareSplit(s string, sep byte) []string {
	var result []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote == 0 {
			if c == '"' || c == '\'' {
				quote = c
			} else if c == sep {
				result = append(result, s[start:i])
				start = i + 1
			}
		} else if c == quote {
			quote = 0
		}
	}
	result = append(result, s[start:])
	return result
}

// collapseWhitespace reduces runs of spaces (outside quotes) to a
// single space, mirroring Bass::strip.
func collapseWhitespace(s string) string {
	var sb strings.Builder
	var quote byte
	prevSpace := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote == 0 {
			if c == '"' || c == '\'' {
				quote = c
			}
		} else if c == quote {
			quote = 0
		}
		if quote == 0 && c == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// FormatFile renders the 0-based file index for diagnostics.
func (l *Loader) FormatFile(fileNumber int) string {
	if fileNumber < 0 || fileNumber >= len(l.Filenames) {
		return fmt.Sprintf("<file#%d>", fileNumber)
	}
	return l.Filenames[fileNumber]
}
