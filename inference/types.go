// Package inference assigns type expressions with graded certainty to
// bindings, parameters and return slots by walking the parsed AST, seeded by
// existing annotations and cross-file knowledge.
package inference

import "strings"

// Certainty grades confidence in an inferred type, ordered
// Unknown < Uncertain < Certain.
type Certainty int

const (
	Unknown Certainty = iota
	Uncertain
	Certain
)

func (c Certainty) String() string {
	switch c {
	case Certain:
		return "certain"
	case Uncertain:
		return "uncertain"
	default:
		return "unknown"
	}
}

// Join combines two operand certainties. It is symmetric and associative:
// Certain⊕Certain=Certain, Unknown⊕Unknown=Unknown, Unknown⊕graded=Uncertain
// and any combination touching Uncertain stays Uncertain.
func Join(a, b Certainty) Certainty {
	if a == Certain && b == Certain {
		return Certain
	}
	if a == Unknown && b == Unknown {
		return Unknown
	}
	return Uncertain
}

// Qualifier grades a single Variant, mirroring the certainty ordering.
type Qualifier int

const (
	VariantUnknown Qualifier = iota
	VariantLikely
	VariantCertain
)

func (q Qualifier) String() string {
	switch q {
	case VariantCertain:
		return "certain"
	case VariantLikely:
		return "likely"
	default:
		return "unknown"
	}
}

// QualifierFor translates a certainty into a variant qualifier.
func QualifierFor(c Certainty) Qualifier {
	switch c {
	case Certain:
		return VariantCertain
	case Uncertain:
		return VariantLikely
	default:
		return VariantUnknown
	}
}

// Certainty translates a qualifier back into a certainty grade.
func (q Qualifier) Certainty() Certainty {
	switch q {
	case VariantCertain:
		return Certain
	case VariantLikely:
		return Uncertain
	default:
		return Unknown
	}
}

// TypeFact is a type expression with a confidence grade.
type TypeFact struct {
	Type      string
	Certainty Certainty
}

// UnknownFact is the bottom fact.
func UnknownFact() TypeFact {
	return TypeFact{Type: "any", Certainty: Unknown}
}

// Variant is one independently inferred candidate type for a slot. Seeded
// variants come from annotations already written in the source; they
// participate in downstream inference but are excluded when the merger asks
// what the code itself shows.
type Variant struct {
	Type      string
	Qualifier Qualifier
	Seeded    bool
}

// Slot accumulates the variants inferred for one parameter, return position
// or binding.
type Slot struct {
	Variants []Variant
}

// Add records an observed candidate type, keeping the strongest qualifier
// per type. An observation corroborates a previously seeded variant.
func (s *Slot) Add(typeExpr string, q Qualifier) {
	s.add(typeExpr, q, false)
}

// AddSeed records a candidate taken from an existing annotation.
func (s *Slot) AddSeed(typeExpr string) {
	s.add(typeExpr, VariantLikely, true)
}

func (s *Slot) add(typeExpr string, q Qualifier, seeded bool) {
	if typeExpr == "" {
		return
	}
	for i, v := range s.Variants {
		if v.Type == typeExpr {
			if q > v.Qualifier {
				s.Variants[i].Qualifier = q
			}
			if !seeded {
				s.Variants[i].Seeded = false
			}
			return
		}
	}
	s.Variants = append(s.Variants, Variant{Type: typeExpr, Qualifier: q, Seeded: seeded})
}

// Observed returns the slot restricted to variants backed by code evidence,
// leaving out uncorroborated annotation seeds.
func (s *Slot) Observed() Slot {
	var out Slot
	for _, v := range s.Variants {
		if !v.Seeded {
			out.Variants = append(out.Variants, v)
		}
	}
	return out
}

// AddFact records a fact as a variant.
func (s *Slot) AddFact(fact TypeFact) {
	if fact.Certainty == Unknown && fact.Type == "any" {
		return
	}
	s.Add(fact.Type, QualifierFor(fact.Certainty))
}

// Empty reports whether nothing beyond Unknown was inferred.
func (s *Slot) Empty() bool { return len(s.Variants) == 0 }

// Fact folds the variants into a single union-typed fact. The certainty is
// the ⊕-join over all variant grades, so a mix of certain and likely
// candidates renders the union uncertain.
func (s *Slot) Fact() TypeFact {
	if s.Empty() {
		return UnknownFact()
	}
	var parts []string
	seen := map[string]bool{}
	certainty := s.Variants[0].Qualifier.Certainty()
	for i, v := range s.Variants {
		if !seen[v.Type] {
			seen[v.Type] = true
			parts = append(parts, v.Type)
		}
		if i > 0 {
			certainty = Join(certainty, v.Qualifier.Certainty())
		}
	}
	return TypeFact{Type: strings.Join(parts, "|"), Certainty: certainty}
}

// Ambiguous reports whether two equally graded variants disagree on type,
// the case the merger surfaces as an advisory union rather than dropping one.
func (s *Slot) Ambiguous() bool {
	if len(s.Variants) < 2 {
		return false
	}
	top := s.Variants[0].Qualifier
	for _, v := range s.Variants[1:] {
		if v.Qualifier > top {
			top = v.Qualifier
		}
	}
	count := 0
	for _, v := range s.Variants {
		if v.Qualifier == top {
			count++
		}
	}
	return count > 1
}

// Result holds everything inferred about one declaration.
type Result struct {
	// Binding is the fact for the declared value itself.
	Binding Slot
	// Params holds one slot per declared parameter, in order.
	Params []Slot
	// Returns holds one slot per return position.
	Returns []Slot
	// NoReturn is set when the body has no valued return statement; the
	// absence is recorded explicitly instead of inferring nil.
	NoReturn bool
	// ParamNames mirrors the declaration's parameter order.
	ParamNames []string
}

// Signature renders a canonical textual form of the result, used for
// pass-to-pass fingerprinting.
func (r *Result) Signature() string {
	var b strings.Builder
	writeSlot := func(s Slot) {
		fact := s.Fact()
		b.WriteString(fact.Type)
		b.WriteByte('#')
		b.WriteString(fact.Certainty.String())
		b.WriteByte(';')
	}
	b.WriteString("b:")
	writeSlot(r.Binding)
	b.WriteString("p:")
	for _, s := range r.Params {
		writeSlot(s)
	}
	b.WriteString("r:")
	for _, s := range r.Returns {
		writeSlot(s)
	}
	if r.NoReturn {
		b.WriteString("noreturn")
	}
	return b.String()
}

// weaker reports whether fact a regressed relative to b.
func weaker(a, b TypeFact) bool {
	return a.Certainty < b.Certainty
}

// Regressed reports whether any slot of r lost certainty relative to prev.
// The convergence loop never accepts a pass that regresses.
func (r *Result) Regressed(prev *Result) bool {
	if prev == nil {
		return false
	}
	if weaker(r.Binding.Fact(), prev.Binding.Fact()) {
		return true
	}
	for i := range r.Params {
		if i < len(prev.Params) && weaker(r.Params[i].Fact(), prev.Params[i].Fact()) {
			return true
		}
	}
	for i := range r.Returns {
		if i < len(prev.Returns) && weaker(r.Returns[i].Fact(), prev.Returns[i].Fact()) {
			return true
		}
	}
	return false
}
