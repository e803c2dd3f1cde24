package term

// Bindings maps variable names to the terms they are bound to. Values may
// themselves be variables; Resolve follows such chains.
type Bindings map[string]Term

// Clone returns an independent copy of the binding map.
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Resolve follows variable chains through the bindings until it reaches a
// non-variable term or an unbound variable.
func Resolve(t Term, b Bindings) Term {
	for {
		v, ok := t.(Variable)
		if !ok {
			return t
		}
		bound, ok := b[v.Name]
		if !ok {
			return t
		}
		t = bound
	}
}

// Unify attempts to find a binding map extending b under which a and b
// become structurally equal. On success it returns the extended map; on any
// kind, name, or arity mismatch, or an occurs-check violation, it returns
// nil and false. The input map is never mutated.
func Unify(a, c Term, b Bindings) (Bindings, bool) {
	if b == nil {
		b = Bindings{}
	}
	out := b.Clone()
	if !unify(a, c, out) {
		return nil, false
	}
	return out, true
}

func unify(a, c Term, b Bindings) bool {
	a = Resolve(a, b)
	c = Resolve(c, b)

	if av, ok := a.(Variable); ok {
		return bindVar(av, c, b)
	}
	if cv, ok := c.(Variable); ok {
		return bindVar(cv, a, b)
	}

	switch x := a.(type) {
	case Atom:
		y, ok := c.(Atom)
		return ok && x.Name == y.Name
	case Structure:
		y, ok := c.(Structure)
		if !ok || x.Name != y.Name || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !unify(x.Args[i], y.Args[i], b) {
				return false
			}
		}
		return true
	case List:
		y, ok := c.(List)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}
		for i := range x.Elems {
			if !unify(x.Elems[i], y.Elems[i], b) {
				return false
			}
		}
		return true
	}
	return false
}

// bindVar extends b with v -> t after the occurs check. Binding a variable
// to itself is a no-op success.
func bindVar(v Variable, t Term, b Bindings) bool {
	if tv, ok := t.(Variable); ok && tv.Name == v.Name {
		return true
	}
	if occurs(v.Name, t, b) {
		return false
	}
	b[v.Name] = t
	return true
}

// occurs reports whether the variable named name appears anywhere inside t,
// resolving through b. This prevents bindings that would describe infinite
// terms.
func occurs(name string, t Term, b Bindings) bool {
	t = Resolve(t, b)
	switch v := t.(type) {
	case Variable:
		return v.Name == name
	case Structure:
		for _, arg := range v.Args {
			if occurs(name, arg, b) {
				return true
			}
		}
	case List:
		for _, e := range v.Elems {
			if occurs(name, e, b) {
				return true
			}
		}
	}
	return false
}

// Substitute rebuilds t with every bound variable replaced by its resolved
// value. Atoms and unbound variables pass through unchanged; the input term
// is never mutated.
func Substitute(t Term, b Bindings) Term {
	if len(b) == 0 {
		return t
	}
	switch v := t.(type) {
	case Atom:
		return v
	case Variable:
		resolved := Resolve(v, b)
		if rv, ok := resolved.(Variable); ok {
			// Unbound (or chain ending in a variable): leave as-is.
			return rv
		}
		return Substitute(resolved, b)
	case Structure:
		args := make([]Term, len(v.Args))
		for i, arg := range v.Args {
			args[i] = Substitute(arg, b)
		}
		return Structure{Name: v.Name, Args: args}
	case List:
		elems := make([]Term, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = Substitute(e, b)
		}
		return List{Elems: elems}
	}
	return t
}
