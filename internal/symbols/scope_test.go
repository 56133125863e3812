package symbols

import "testing"

func TestScopePushPop(t *testing.T) {
	var s Scope
	s = s.Push("foo").Push("bar")
	if s != "foo.bar" {
		t.Fatalf("got %q", s)
	}
	if s.Pop() != "foo" {
		t.Fatalf("pop got %q", s.Pop())
	}
	if Scope("").Pop() != "" {
		t.Fatalf("pop of empty scope should stay empty")
	}
}

func TestFrameVisibilityLevels(t *testing.T) {
	store := New()
	store.SetDefine(LevelGlobal, &Define{Name: "g", Value: "1"})

	store.PushFrame(0, false) // active, non-inlined outer macro
	store.SetDefine(LevelActive, &Define{Name: "a", Value: "2"})

	store.PushFrame(0, true) // inlined innermost frame
	store.SetDefine(LevelInline, &Define{Name: "i", Value: "3"})

	if _, ok := store.FindDefine("g"); !ok {
		t.Fatal("global define not visible from inline frame")
	}
	if _, ok := store.FindDefine("a"); !ok {
		t.Fatal("active define not visible from inline frame")
	}
	if _, ok := store.FindDefine("i"); !ok {
		t.Fatal("inline define not visible in its own frame")
	}

	store.PopFrame()
	if _, ok := store.FindDefine("i"); ok {
		t.Fatal("inline define leaked past its frame")
	}
}

func TestConstantLookupWalksScopePrefix(t *testing.T) {
	store := New()
	store.SetConstant("foo.bar", 42)
	store.Scope = Scope("foo.bar.baz")

	v, ok := store.FindConstant("bar")
	if !ok || v != 42 {
		t.Fatalf("expected scope-walk to find foo.bar, got %v %v", v, ok)
	}

	if _, ok := store.FindConstant("nope"); ok {
		t.Fatal("unexpected constant found")
	}
}

func TestMacroArityOverload(t *testing.T) {
	store := New()
	store.SetMacro(LevelActive, &Macro{Name: "foo", Params: []Param{{Name: "a"}}})
	store.SetMacro(LevelActive, &Macro{Name: "foo", Params: []Param{{Name: "a"}, {Name: "b"}}})

	if _, ok := store.FindMacro("foo", 1); !ok {
		t.Fatal("arity-1 overload not found")
	}
	if _, ok := store.FindMacro("foo", 2); !ok {
		t.Fatal("arity-2 overload not found")
	}
	if _, ok := store.FindMacro("foo", 3); ok {
		t.Fatal("unexpected arity-3 match")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]bool{
		"foo":  true,
		"_foo": true,
		"foo1": true,
		"1foo": false,
		"":     false,
		"fo-o": false,
	}
	for name, want := range cases {
		if got := Validate(name); got != want {
			t.Errorf("Validate(%q) = %v, want %v", name, got, want)
		}
	}
}
