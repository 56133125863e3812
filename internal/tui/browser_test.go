package tui

import (
	"strings"
	"testing"

	"github.com/retrotool/bassgo/internal/source"
)

func TestRenderProgramListsEveryInstruction(t *testing.T) {
	loader := source.New()
	loader.Filenames = []string{"main.bass"}
	loader.Program = []source.Instruction{
		{Statement: "origin 0", FileNumber: 0, LineNumber: 1, BlockNumber: 1},
		{Statement: "db 1,2,3", FileNumber: 0, LineNumber: 2, BlockNumber: 1},
	}

	out := renderProgram(loader)
	if !strings.Contains(out, "origin 0") || !strings.Contains(out, "db 1,2,3") {
		t.Fatalf("expected both statements rendered, got %q", out)
	}
	if !strings.Contains(out, "main.bass:1:1") {
		t.Fatalf("expected provenance in output, got %q", out)
	}
}

func TestRenderProgramEmpty(t *testing.T) {
	out := renderProgram(source.New())
	if !strings.Contains(out, "no program loaded") {
		t.Fatalf("expected placeholder text, got %q", out)
	}
}

func TestRenderSymbolsSortedAndFormatted(t *testing.T) {
	out := renderSymbols(map[string]int64{"zeta": 255, "alpha": 10})
	alphaIdx := strings.Index(out, "alpha")
	zetaIdx := strings.Index(out, "zeta")
	if alphaIdx < 0 || zetaIdx < 0 || alphaIdx > zetaIdx {
		t.Fatalf("expected alpha before zeta, got %q", out)
	}
	if !strings.Contains(out, "0xff") {
		t.Fatalf("expected hex rendering of 255, got %q", out)
	}
}

func TestRenderSymbolsEmpty(t *testing.T) {
	out := renderSymbols(nil)
	if !strings.Contains(out, "no constants resolved") {
		t.Fatalf("expected placeholder text, got %q", out)
	}
}
