package term

import (
	"strings"
	"unicode"
)

// ParseHeuristic reconstructs a term from plain text on a best-effort basis.
// It recognizes name(arg, ...) structures, [a, b] lists, ?X / leading-
// uppercase variables, and treats everything else as an atom. The parse is
// lossy by design: it exists so free text coming back from an LLM or a user
// can re-enter the term space, and must not be relied on to round-trip
// arbitrary structures.
func ParseHeuristic(text string) Term {
	text = strings.TrimSpace(text)
	if text == "" {
		return Atom{Name: ""}
	}

	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") && balanced(text) {
		inner := strings.TrimSpace(text[1 : len(text)-1])
		if inner == "" {
			return List{}
		}
		parts := splitTop(inner)
		elems := make([]Term, len(parts))
		for i, p := range parts {
			elems[i] = ParseHeuristic(p)
		}
		return List{Elems: elems}
	}

	if open := strings.IndexByte(text, '('); open > 0 && strings.HasSuffix(text, ")") && balanced(text) {
		name := strings.TrimSpace(text[:open])
		if isIdent(name) {
			inner := strings.TrimSpace(text[open+1 : len(text)-1])
			var args []Term
			if inner != "" {
				parts := splitTop(inner)
				args = make([]Term, len(parts))
				for i, p := range parts {
					args[i] = ParseHeuristic(p)
				}
			}
			return Structure{Name: name, Args: args}
		}
	}

	if v, ok := asVariable(text); ok {
		return v
	}
	return Atom{Name: text}
}

// asVariable recognizes ?name and bare capitalized identifiers as logic
// variables.
func asVariable(s string) (Variable, bool) {
	if strings.HasPrefix(s, "?") && isIdent(s[1:]) {
		return Variable{Name: s[1:]}, true
	}
	if isIdent(s) {
		r := []rune(s)
		if unicode.IsUpper(r[0]) {
			return Variable{Name: s}, true
		}
	}
	return Variable{}, false
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if unicode.IsLetter(r) || r == '_' {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

// balanced reports whether parens and brackets nest correctly and the
// trailing delimiter closes the leading one.
func balanced(s string) bool {
	depth := 0
	for i, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			if depth < 0 {
				return false
			}
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}

// splitTop splits on commas at nesting depth zero.
func splitTop(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	return parts
}
