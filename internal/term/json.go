package term

import (
	"encoding/json"
	"fmt"
)

// Wire format: every variant carries an explicit "kind" discriminant. The
// decoder fails closed on unknown or malformed shapes instead of guessing.
const (
	kindAtom      = "atom"
	kindVariable  = "variable"
	kindStructure = "structure"
	kindList      = "list"
)

type wireTerm struct {
	Kind  string            `json:"kind"`
	Name  string            `json:"name,omitempty"`
	Args  []json.RawMessage `json:"args,omitempty"`
	Elems []json.RawMessage `json:"elements,omitempty"`
}

// MarshalJSON implementations emit the tagged wire form.

func (a Atom) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
	}{kindAtom, a.Name})
}

func (v Variable) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
	}{kindVariable, v.Name})
}

func (s Structure) MarshalJSON() ([]byte, error) {
	args := make([]json.RawMessage, len(s.Args))
	for i, arg := range s.Args {
		data, err := Marshal(arg)
		if err != nil {
			return nil, err
		}
		args[i] = data
	}
	return json.Marshal(struct {
		Kind string            `json:"kind"`
		Name string            `json:"name"`
		Args []json.RawMessage `json:"args"`
	}{kindStructure, s.Name, args})
}

func (l List) MarshalJSON() ([]byte, error) {
	elems := make([]json.RawMessage, len(l.Elems))
	for i, e := range l.Elems {
		data, err := Marshal(e)
		if err != nil {
			return nil, err
		}
		elems[i] = data
	}
	return json.Marshal(struct {
		Kind  string            `json:"kind"`
		Elems []json.RawMessage `json:"elements"`
	}{kindList, elems})
}

// Marshal encodes a term into its tagged JSON form.
func Marshal(t Term) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("term: cannot marshal nil term")
	}
	return json.Marshal(t)
}

// Unmarshal decodes the tagged JSON form back into a term. Unknown kinds
// and malformed payloads are errors, never silently coerced.
func Unmarshal(data []byte) (Term, error) {
	var w wireTerm
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("term: decode: %w", err)
	}
	switch w.Kind {
	case kindAtom:
		return Atom{Name: w.Name}, nil
	case kindVariable:
		if w.Name == "" {
			return nil, fmt.Errorf("term: variable with empty name")
		}
		return Variable{Name: w.Name}, nil
	case kindStructure:
		args := make([]Term, len(w.Args))
		for i, raw := range w.Args {
			arg, err := Unmarshal(raw)
			if err != nil {
				return nil, fmt.Errorf("term: structure %s arg %d: %w", w.Name, i, err)
			}
			args[i] = arg
		}
		return Structure{Name: w.Name, Args: args}, nil
	case kindList:
		elems := make([]Term, len(w.Elems))
		for i, raw := range w.Elems {
			e, err := Unmarshal(raw)
			if err != nil {
				return nil, fmt.Errorf("term: list element %d: %w", i, err)
			}
			elems[i] = e
		}
		return List{Elems: elems}, nil
	default:
		return nil, fmt.Errorf("term: unknown kind %q", w.Kind)
	}
}
