package eval

import (
	"testing"

	"github.com/retrotool/bassgo/internal/symbols"
)

type fakeContext struct {
	store          *symbols.Store
	pc, origin, bs int64
	relative       symbols.RelativeLabels
	querying       bool
}

func (f *fakeContext) Store() *symbols.Store              { return f.store }
func (f *fakeContext) PC() int64                          { return f.pc }
func (f *fakeContext) Origin() int64                      { return f.origin }
func (f *fakeContext) Base() int64                        { return f.bs }
func (f *fakeContext) Relative() *symbols.RelativeLabels  { return &f.relative }
func (f *fakeContext) Querying() bool                     { return f.querying }

func newCtx() *fakeContext {
	return &fakeContext{store: symbols.New(), pc: 0x8000, origin: 0x8000, bs: 0}
}

func mustEval(t *testing.T, expr string, ctx Context) int64 {
	t.Helper()
	v, err := EvalString(expr, ctx)
	if err != nil {
		t.Fatalf("EvalString(%q): %v", expr, err)
	}
	return v
}

func TestEvalArithmeticPrecedence(t *testing.T) {
	ctx := newCtx()
	if v := mustEval(t, "2 + 3 * 4", ctx); v != 14 {
		t.Fatalf("got %d, want 14", v)
	}
	if v := mustEval(t, "(2 + 3) * 4", ctx); v != 20 {
		t.Fatalf("got %d, want 20", v)
	}
}

func TestEvalModuloNotConfusedWithBinaryLiteral(t *testing.T) {
	ctx := newCtx()
	if v := mustEval(t, "10 % 3", ctx); v != 1 {
		t.Fatalf("got %d, want 1", v)
	}
}

func TestEvalBitwiseAndShift(t *testing.T) {
	ctx := newCtx()
	if v := mustEval(t, "0xff & 0x0f", ctx); v != 0x0f {
		t.Fatalf("got %#x", v)
	}
	if v := mustEval(t, "1 << 4", ctx); v != 16 {
		t.Fatalf("got %d", v)
	}
}

func TestEvalTernary(t *testing.T) {
	ctx := newCtx()
	if v := mustEval(t, "1 == 1 ? 10 : 20", ctx); v != 10 {
		t.Fatalf("got %d", v)
	}
	if v := mustEval(t, "1 == 2 ? 10 : 20", ctx); v != 20 {
		t.Fatalf("got %d", v)
	}
}

func TestEvalBuiltins(t *testing.T) {
	ctx := newCtx()
	if v := mustEval(t, "pc() + 1", ctx); v != 0x8001 {
		t.Fatalf("got %#x", v)
	}
	if v := mustEval(t, "origin()", ctx); v != 0x8000 {
		t.Fatalf("got %#x", v)
	}
}

func TestEvalIdentifierVariableBeforeConstant(t *testing.T) {
	ctx := newCtx()
	ctx.store.SetConstant("x", 100)
	ctx.store.SetVariable(symbols.LevelActive, &symbols.Variable{Name: "x", Value: 7})

	if v := mustEval(t, "x", ctx); v != 7 {
		t.Fatalf("variable should shadow constant, got %d", v)
	}
}

func TestEvalNumberBases(t *testing.T) {
	ctx := newCtx()
	cases := map[string]int64{
		"0x10":  16,
		"$10":   16,
		"0b101": 5,
		"%101":  5,
		"0o17":  15,
		"42":    42,
	}
	for expr, want := range cases {
		if v := mustEval(t, expr, ctx); v != want {
			t.Errorf("%s = %d, want %d", expr, v, want)
		}
	}
}

func TestEvalCharacterLiteral(t *testing.T) {
	ctx := newCtx()
	if v := mustEval(t, "'A'", ctx); v != 'A' {
		t.Fatalf("got %d", v)
	}
	if v := mustEval(t, "'\\n'", ctx); v != '\n' {
		t.Fatalf("got %d", v)
	}
	if v := mustEval(t, "'\\s'", ctx); v != '\'' {
		t.Fatalf("got %d", v)
	}
	if v := mustEval(t, "'\\d'", ctx); v != '"' {
		t.Fatalf("got %d", v)
	}
	if v := mustEval(t, "'\\c'", ctx); v != ',' {
		t.Fatalf("got %d", v)
	}
	if v := mustEval(t, "'\\b'", ctx); v != ';' {
		t.Fatalf("got %d", v)
	}
}

func TestExpandDefinesSimple(t *testing.T) {
	ctx := newCtx()
	ctx.store.SetDefine(symbols.LevelActive, &symbols.Define{Name: "FOO", Value: "42"})

	got := ExpandDefines("db {FOO}", ctx)
	if got != "db 42" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandDefinesWithParams(t *testing.T) {
	ctx := newCtx()
	ctx.store.SetDefine(symbols.LevelActive, &symbols.Define{Name: "ADD", Params: []string{"a", "b"}, Value: "{a} + {b}"})

	got := ExpandDefines("db {ADD(1, 2)}", ctx)
	if got != "db 1 + 2" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandDefinesWithTypedParams(t *testing.T) {
	ctx := newCtx()
	ctx.store.SetDefine(symbols.LevelActive, &symbols.Define{
		Name:   "MSG",
		Params: []string{"string s", "evaluate n"},
		Value:  "{s}{n}",
	})

	got := ExpandDefines(`{MSG("hi", 1+2)}`, ctx)
	if got != "hi3" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandDefinesDefinedPredicate(t *testing.T) {
	ctx := newCtx()
	ctx.store.SetDefine(symbols.LevelActive, &symbols.Define{Name: "FOO", Value: "1"})

	if got := ExpandDefines("{defined FOO}", ctx); got != "1" {
		t.Fatalf("got %q", got)
	}
	if got := ExpandDefines("{defined BAR}", ctx); got != "0" {
		t.Fatalf("got %q", got)
	}
}

func TestEvalAssignMutatesVariable(t *testing.T) {
	ctx := newCtx()
	ctx.store.SetVariable(symbols.LevelActive, &symbols.Variable{Name: "n", Value: 1})

	if v := mustEval(t, "n = n + 1", ctx); v != 2 {
		t.Fatalf("got %d, want 2", v)
	}
	if v, ok := ctx.store.FindVariable("n"); !ok || v.Value != 2 {
		t.Fatalf("variable not mutated, got %+v", v)
	}
}

func TestEvalAssignUnresolvedVariableFails(t *testing.T) {
	ctx := newCtx()
	if _, err := EvalString("missing = 1", ctx); err == nil {
		t.Fatal("expected error assigning to unresolved variable")
	}
}

func TestEvalUserExpression(t *testing.T) {
	ctx := newCtx()
	ctx.store.SetExpression(symbols.LevelActive, &symbols.Expression{
		Name: "double", Params: []string{"x"}, Body: "{x} * 2",
	})
	if v := mustEval(t, "double(21)", ctx); v != 42 {
		t.Fatalf("got %d", v)
	}
}
