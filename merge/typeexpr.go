package merge

import (
	"strings"

	"github.com/ChrisGVE/lua-tools/annotation"
)

type relation int

const (
	relAgree relation = iota
	relOptional
	relContradict
)

// relate classifies the existing annotated type against the inferred one.
// Agreement covers exact matches and subset relations in either direction:
// a narrower existing union is a refinement to keep, a wider one already
// covers what inference saw. A difference of exactly `nil` is the
// optionality case and gets its own advisory.
func relate(ann *annotation.Annotation, inferred string) relation {
	existing := unionParts(ann.Type)
	if ann.Optional {
		existing = addPart(existing, "nil")
	}
	observed := unionParts(inferred)

	if equalSets(existing, observed) {
		return relAgree
	}
	// Checked before the subset rules so that an observed `string|nil`
	// against an annotated `string` surfaces the optionality relationship
	// instead of passing as a refinement. The other direction, an optional
	// annotation over a non-nil observation, is plain agreement.
	if !contains(existing, "nil") && contains(observed, "nil") &&
		equalSets(dropNil(existing), dropNil(observed)) {
		return relOptional
	}
	if subset(existing, observed) || subset(observed, existing) {
		return relAgree
	}
	// Named aliases and broad container types are not contradicted by a
	// structural guess of the same shape.
	if covers(existing, observed) {
		return relAgree
	}
	return relContradict
}

// covers reports whether every observed part is structurally subsumed by
// some existing part, e.g. `table<string, number>` covers `table` and
// `integer` is covered by `number`.
func covers(existing, observed []string) bool {
	for _, o := range observed {
		matched := false
		for _, e := range existing {
			if subsumes(e, o) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func subsumes(existing, observed string) bool {
	if existing == observed || existing == "any" {
		return true
	}
	if observed == "integer" && existing == "number" {
		return true
	}
	if observed == "table" && (strings.HasPrefix(existing, "table<") || strings.HasPrefix(existing, "{")) {
		return true
	}
	if observed == "function" && strings.HasPrefix(existing, "fun(") {
		return true
	}
	return false
}

// unionParts splits a type expression on top-level `|`, ignoring separators
// nested in brackets, parentheses, angle brackets or quotes.
func unionParts(expr string) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			if depth > 0 {
				depth--
			}
		case '|':
			if depth == 0 {
				parts = addPart(parts, strings.TrimSpace(expr[start:i]))
				start = i + 1
			}
		}
	}
	parts = addPart(parts, strings.TrimSpace(expr[start:]))
	return parts
}

func addPart(parts []string, part string) []string {
	if strings.HasSuffix(part, "?") {
		// `string?` is shorthand for `string|nil`
		parts = addPart(parts, strings.TrimSuffix(part, "?"))
		return addPart(parts, "nil")
	}
	if part == "" {
		return parts
	}
	for _, p := range parts {
		if p == part {
			return parts
		}
	}
	return append(parts, part)
}

func subset(a, b []string) bool {
	for _, p := range a {
		if !contains(b, p) {
			return false
		}
	}
	return true
}

func equalSets(a, b []string) bool {
	return len(a) == len(b) && subset(a, b)
}

func dropNil(parts []string) []string {
	var out []string
	for _, p := range parts {
		if p != "nil" {
			out = append(out, p)
		}
	}
	return out
}

func contains(parts []string, part string) bool {
	for _, p := range parts {
		if p == part {
			return true
		}
	}
	return false
}
