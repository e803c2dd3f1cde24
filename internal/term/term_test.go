package term

import (
	"testing"
)

func TestUnifyGroundTerms(t *testing.T) {
	cases := []struct {
		name string
		a, b Term
		ok   bool
	}{
		{"equal atoms", Atom{Name: "milk"}, Atom{Name: "milk"}, true},
		{"different atoms", Atom{Name: "milk"}, Atom{Name: "bread"}, false},
		{"atom vs structure", Atom{Name: "f"}, Structure{Name: "f"}, false},
		{
			"equal structures",
			Structure{Name: "buy", Args: []Term{Atom{Name: "milk"}}},
			Structure{Name: "buy", Args: []Term{Atom{Name: "milk"}}},
			true,
		},
		{
			"arity mismatch",
			Structure{Name: "buy", Args: []Term{Atom{Name: "milk"}}},
			Structure{Name: "buy", Args: []Term{Atom{Name: "milk"}, Atom{Name: "now"}}},
			false,
		},
		{
			"equal lists",
			List{Elems: []Term{Atom{Name: "a"}, Atom{Name: "b"}}},
			List{Elems: []Term{Atom{Name: "a"}, Atom{Name: "b"}}},
			true,
		},
		{
			"list length mismatch",
			List{Elems: []Term{Atom{Name: "a"}}},
			List{},
			false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := Unify(tc.a, tc.b, nil)
			if ok != tc.ok {
				t.Errorf("Unify(%v, %v) ok = %v, want %v", tc.a, tc.b, ok, tc.ok)
			}
			// Unification of ground terms is symmetric.
			_, rok := Unify(tc.b, tc.a, nil)
			if rok != tc.ok {
				t.Errorf("Unify(%v, %v) ok = %v, want %v (symmetry)", tc.b, tc.a, rok, tc.ok)
			}
		})
	}
}

func TestUnifyBindsVariable(t *testing.T) {
	pattern := Structure{Name: "buy", Args: []Term{Variable{Name: "Item"}}}
	content := Structure{Name: "buy", Args: []Term{Atom{Name: "milk"}}}

	b, ok := Unify(pattern, content, nil)
	if !ok {
		t.Fatal("expected unification to succeed")
	}
	got := Resolve(Variable{Name: "Item"}, b)
	if !Equal(got, Atom{Name: "milk"}) {
		t.Errorf("Item resolved to %v, want milk", got)
	}
}

func TestUnifyVariableChains(t *testing.T) {
	// X unifies with Y, then Y with an atom; X must resolve through the chain.
	b, ok := Unify(Variable{Name: "X"}, Variable{Name: "Y"}, nil)
	if !ok {
		t.Fatal("var-var unification failed")
	}
	b, ok = Unify(Variable{Name: "Y"}, Atom{Name: "done"}, b)
	if !ok {
		t.Fatal("var-atom unification failed")
	}
	if got := Resolve(Variable{Name: "X"}, b); !Equal(got, Atom{Name: "done"}) {
		t.Errorf("X resolved to %v, want done", got)
	}
}

func TestUnifyOccursCheck(t *testing.T) {
	x := Variable{Name: "X"}
	inner := Structure{Name: "f", Args: []Term{Variable{Name: "X"}}}
	if _, ok := Unify(x, inner, nil); ok {
		t.Error("expected occurs check to reject X = f(X)")
	}
	// Also through an intermediate binding.
	b, ok := Unify(Variable{Name: "X"}, Variable{Name: "Y"}, nil)
	if !ok {
		t.Fatal("var-var unification failed")
	}
	if _, ok := Unify(Variable{Name: "Y"}, Structure{Name: "g", Args: []Term{x}}, b); ok {
		t.Error("expected occurs check to reject Y = g(X) with X = Y")
	}
}

func TestUnifyDoesNotMutateInput(t *testing.T) {
	b := Bindings{"Z": Atom{Name: "keep"}}
	_, ok := Unify(Variable{Name: "X"}, Atom{Name: "a"}, b)
	if !ok {
		t.Fatal("unification failed")
	}
	if len(b) != 1 {
		t.Errorf("input bindings mutated: %v", b)
	}
}

func TestSubstitute(t *testing.T) {
	b := Bindings{
		"Item": Atom{Name: "milk"},
		"Qty":  Atom{Name: "2"},
	}
	in := Structure{Name: "buy", Args: []Term{
		Variable{Name: "Item"},
		Variable{Name: "Qty"},
		Variable{Name: "Unbound"},
	}}
	out := Substitute(in, b)

	want := Structure{Name: "buy", Args: []Term{
		Atom{Name: "milk"},
		Atom{Name: "2"},
		Variable{Name: "Unbound"},
	}}
	if !Equal(out, want) {
		t.Errorf("Substitute = %v, want %v", out, want)
	}

	// Idempotent on fully-resolved terms.
	again := Substitute(out, b)
	if !Equal(again, out) {
		t.Errorf("second Substitute changed term: %v -> %v", out, again)
	}
}

func TestSubstituteFollowsChains(t *testing.T) {
	b := Bindings{
		"X": Variable{Name: "Y"},
		"Y": Atom{Name: "end"},
	}
	out := Substitute(Variable{Name: "X"}, b)
	if !Equal(out, Atom{Name: "end"}) {
		t.Errorf("Substitute(X) = %v, want end", out)
	}
}

func TestFormat(t *testing.T) {
	tm := Structure{Name: "remind", Args: []Term{
		Atom{Name: "buy milk"},
		Variable{Name: "When"},
		List{Elems: []Term{Atom{Name: "a"}, Atom{Name: "b"}}},
	}}
	if got, want := tm.String(), "remind(buy milk, ?When, [a, b])"; got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
	if got, want := Canonical(tm), "remind: buy milk When a, b"; got != want {
		t.Errorf("Canonical = %q, want %q", got, want)
	}
}

func TestParseHeuristic(t *testing.T) {
	cases := []struct {
		in   string
		want Term
	}{
		{"buy milk", Atom{Name: "buy milk"}},
		{"?X", Variable{Name: "X"}},
		{"Item", Variable{Name: "Item"}},
		{"goal(buy milk)", Structure{Name: "goal", Args: []Term{Atom{Name: "buy milk"}}}},
		{
			"add(task, ?What)",
			Structure{Name: "add", Args: []Term{Atom{Name: "task"}, Variable{Name: "What"}}},
		},
		{
			"[a, b, f(c)]",
			List{Elems: []Term{Atom{Name: "a"}, Atom{Name: "b"}, Structure{Name: "f", Args: []Term{Atom{Name: "c"}}}}},
		},
		{"[]", List{}},
		// Unbalanced input degrades to an atom, never errors.
		{"broken(", Atom{Name: "broken("}},
	}
	for _, tc := range cases {
		got := ParseHeuristic(tc.in)
		if !Equal(got, tc.want) {
			t.Errorf("ParseHeuristic(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	in := Structure{Name: "remind", Args: []Term{
		Atom{Name: "buy milk"},
		Variable{Name: "When"},
		List{Elems: []Term{Atom{Name: "x"}}},
	}}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !Equal(in, out) {
		t.Errorf("round trip: got %v, want %v", out, in)
	}
}

func TestJSONDecodeFailsClosed(t *testing.T) {
	for _, bad := range []string{
		`{"kind":"blob","name":"x"}`,
		`{"name":"x"}`,
		`{"kind":"variable"}`,
		`"just a string"`,
	} {
		if _, err := Unmarshal([]byte(bad)); err == nil {
			t.Errorf("Unmarshal(%s) succeeded, want error", bad)
		}
	}
}
