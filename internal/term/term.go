// Package term implements the algebraic term type used as the payload of
// every thought and rule: atoms, logic variables, named structures, and
// lists, together with unification, substitution, and the wire codec.
package term

import (
	"fmt"
	"strings"
)

// Term is the payload type carried by thoughts and rules. It is a sealed
// union: Atom, Variable, Structure, and List are the only implementations.
// Terms are immutable values; operations that transform a term always
// return a new one.
type Term interface {
	fmt.Stringer
	sealed()
}

// Atom is an opaque symbolic value.
type Atom struct {
	Name string
}

// Variable is an unbound logic variable, scoped to a single unification or
// substitution operation.
type Variable struct {
	Name string
}

// Structure is a named tuple of sub-terms with fixed arity per instance.
type Structure struct {
	Name string
	Args []Term
}

// List is an ordered sequence of terms.
type List struct {
	Elems []Term
}

func (Atom) sealed()      {}
func (Variable) sealed()  {}
func (Structure) sealed() {}
func (List) sealed()      {}

// String renders the term in display form: atoms by name, variables with a
// leading "?", structures as name(a, b), lists as [a, b]. Display form is
// lossy; use Canonical for LLM-facing text and the JSON codec for storage.
func (a Atom) String() string { return a.Name }

func (v Variable) String() string { return "?" + v.Name }

func (s Structure) String() string {
	parts := make([]string, len(s.Args))
	for i, arg := range s.Args {
		parts[i] = arg.String()
	}
	return s.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (l List) String() string {
	parts := make([]string, len(l.Elems))
	for i, e := range l.Elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Canonical flattens a term into plain text for natural-language consumers
// (LLM prompts, memory content). Structure arguments are joined with spaces
// after the structure name; list elements are joined with commas. The result
// does not round-trip.
func Canonical(t Term) string {
	switch v := t.(type) {
	case Atom:
		return v.Name
	case Variable:
		return v.Name
	case Structure:
		parts := make([]string, 0, len(v.Args)+1)
		parts = append(parts, v.Name+":")
		for _, arg := range v.Args {
			parts = append(parts, Canonical(arg))
		}
		return strings.Join(parts, " ")
	case List:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = Canonical(e)
		}
		return strings.Join(parts, ", ")
	default:
		return t.String()
	}
}

// Equal reports structural equality of two terms.
func Equal(a, b Term) bool {
	switch x := a.(type) {
	case Atom:
		y, ok := b.(Atom)
		return ok && x.Name == y.Name
	case Variable:
		y, ok := b.(Variable)
		return ok && x.Name == y.Name
	case Structure:
		y, ok := b.(Structure)
		if !ok || x.Name != y.Name || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case List:
		y, ok := b.(List)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}
		for i := range x.Elems {
			if !Equal(x.Elems[i], y.Elems[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
