// Package merge reconciles inferred type facts with the annotations already
// present above a declaration. Existing annotation lines are never reordered
// or rewritten; the merger appends missing entries, demotes disproven ones
// into block comments and attaches advisory lines for everything it cannot
// decide on its own.
package merge

import (
	"fmt"

	"github.com/ChrisGVE/lua-tools/annotation"
	"github.com/ChrisGVE/lua-tools/inference"
	"github.com/ChrisGVE/lua-tools/parser"
)

// Placeholder texts emitted for slots the pipeline cannot fill in. They use
// the doc-comment form so a second run re-attaches them to the declaration.
const (
	placeholderDescription = "--- TODO: Describe the function"
	placeholderTypeSuffix  = " @TODO: Specify type and describe"
)

// Merged is the merge outcome for one declaration: the full replacement doc
// block, unindented, one entry per source line.
type Merged struct {
	Decl       parser.Decl
	Lines      []string
	Advisories []string
	// Changed is false when the rendered block equals the existing one,
	// in which case no edit is produced.
	Changed bool
}

// File merges every declaration of a file against its inference results.
// Non-function bindings receive a @type annotation only when they are module
// exports or already documented, so plain locals are left untouched.
func File(file *parser.File, results *inference.FileResult) []*Merged {
	exported := make(map[parser.Decl]bool)
	if file.Module != nil {
		for _, member := range file.Module.Members {
			exported[member.Decl] = true
		}
	}
	var out []*Merged
	for _, decl := range results.Order {
		result := results.Decls[decl]
		if !isFunction(result) && !exported[decl] && decl.Doc().Empty() {
			continue
		}
		if m := Declaration(decl, result); m.Changed {
			out = append(out, m)
		}
	}
	return out
}

// Declaration merges one declaration. The result is always complete; Changed
// reports whether it differs from the source.
func Declaration(decl parser.Decl, result *inference.Result) *Merged {
	m := &Merged{Decl: decl}
	doc := decl.Doc()

	var existing []string
	if !doc.Empty() {
		for _, tok := range doc.Description {
			existing = append(existing, tok.Text)
		}
		for _, tok := range doc.Annotations {
			existing = append(existing, tok.Text)
		}
	}

	var block *annotation.Block
	if doc != nil && len(doc.Annotations) > 0 {
		block = annotation.Parse(doc.Annotations)
	} else {
		block = &annotation.Block{}
	}

	s := &session{m: m, existing: existing, block: block, result: result}
	s.run(isFunction(result))

	m.Changed = !equalLines(existing, m.Lines)
	return m
}

func isFunction(r *inference.Result) bool {
	return len(r.ParamNames) > 0 || len(r.Returns) > 0 || r.NoReturn
}

// session carries the state of merging one declaration.
type session struct {
	m        *Merged
	existing []string
	block    *annotation.Block
	result   *inference.Result

	demoted  map[*annotation.Annotation]string // live replacement line
	appended []string
}

func (s *session) run(function bool) {
	s.demoted = make(map[*annotation.Annotation]string)

	if function {
		s.mergeParams()
		s.mergeReturns()
	} else {
		s.mergeBinding()
	}
	s.flagMalformed()
	s.render(function)
}

// mergeParams reconciles each declared parameter against the @param entries.
func (s *session) mergeParams() {
	existingParams := s.block.Params()
	claimed := make(map[string]bool)
	for _, name := range s.result.ParamNames {
		claimed[name] = true
	}
	for i, name := range s.result.ParamNames {
		// Only code evidence may corroborate or contradict what is
		// already written; uncorroborated seeds are left out.
		observed := s.result.Params[i].Observed()
		inferred := observed.Fact()
		ann := s.block.Param(name)
		if ann == nil && i < len(existingParams) && !claimed[existingParams[i].Name] {
			// Positionally matched entry under a different name. Types
			// rule; the naming difference is advisory only.
			ann = existingParams[i]
			s.advise(fmt.Sprintf("--- TODO: parameter '%s' is annotated as '%s'", name, ann.Name))
		}
		if ann == nil {
			s.appended = append(s.appended, paramLine(name, inferred))
			continue
		}
		s.reconcile(ann, inferred, "'"+name+"'", paramLine(name, inferred))
	}
}

func (s *session) mergeReturns() {
	existingReturns := s.block.Returns()
	if s.result.NoReturn {
		if len(existingReturns) > 0 {
			// The body may contain statements the parser kept opaque,
			// so an annotated return is questioned, not removed.
			s.advise("--- TODO: verify @return: no return statement found in body")
		}
		return
	}
	for i := range s.result.Returns {
		observed := s.result.Returns[i].Observed()
		inferred := observed.Fact()
		if i >= len(existingReturns) {
			s.appended = append(s.appended, returnLine(inferred))
			continue
		}
		s.reconcile(existingReturns[i], inferred, "return value", returnLine(inferred))
	}
}

func (s *session) mergeBinding() {
	observed := s.result.Binding.Observed()
	inferred := observed.Fact()
	ann := s.block.Find(annotation.KindType)
	if ann == nil {
		if inferred.Certainty != inference.Unknown {
			s.appended = append(s.appended, "---@type "+inferred.Type)
		}
		return
	}
	s.reconcile(ann, inferred, "binding", "---@type "+inferred.Type)
}

// reconcile applies the policy table to one existing annotation and one
// inferred fact. liveLine is the line that replaces the existing one when a
// certain contradiction demotes it.
func (s *session) reconcile(ann *annotation.Annotation, inferred inference.TypeFact, subject, liveLine string) {
	if inferred.Certainty == inference.Unknown || ann.Type == "" {
		return
	}
	rel := relate(ann, inferred.Type)
	switch rel {
	case relAgree:
		return
	case relOptional:
		s.advise(fmt.Sprintf("--- TODO: confirm optionality of %s: inferred %s, annotated %s",
			subject, inferred.Type, ann.Type))
	case relContradict:
		if inferred.Certainty == inference.Certain {
			s.demoted[ann] = liveLine
			return
		}
		s.advise(fmt.Sprintf("--- TODO: verify type of %s: inference suggests %s",
			subject, inferred.Type))
	}
}

// flagMalformed attaches one advisory per annotation the parser could not
// make sense of. The line itself is kept verbatim.
func (s *session) flagMalformed() {
	for _, ann := range s.block.Annotations {
		if ann.ParseErr == "" || ann.Kind == annotation.KindDoc {
			continue
		}
		s.advise(fmt.Sprintf("--- TODO: fix %s annotation: %s", ann.Prefix, ann.ParseErr))
	}
}

func (s *session) advise(line string) {
	s.m.Advisories = append(s.m.Advisories, line)
}

// render assembles the final block: description (or placeholder), existing
// annotation lines in original order with demotions applied, then appended
// entries and advisories. Lines already present in the source are never
// emitted twice.
func (s *session) render(function bool) {
	present := make(map[string]bool, len(s.existing))
	for _, line := range s.existing {
		present[line] = true
	}

	var out []string
	hasDescription := false
	for _, tok := range declDescription(s.m.Decl) {
		out = append(out, tok)
		hasDescription = true
	}
	if !hasDescription && function {
		out = append(out, placeholderDescription)
	}

	for _, ann := range s.block.Annotations {
		if live, ok := s.demoted[ann]; ok {
			out = append(out, live, "--[[ "+ann.Raw+" ]]")
			continue
		}
		out = append(out, annotationLines(ann)...)
	}
	for _, line := range s.appended {
		if !present[line] {
			out = append(out, line)
		}
	}
	for _, line := range s.m.Advisories {
		if !present[line] {
			out = append(out, line)
		}
	}
	s.m.Lines = out
}

func declDescription(decl parser.Decl) []string {
	doc := decl.Doc()
	if doc.Empty() {
		return nil
	}
	var out []string
	for _, tok := range doc.Description {
		out = append(out, tok.Text)
	}
	return out
}

// annotationLines re-emits an annotation verbatim, alias entries included.
func annotationLines(ann *annotation.Annotation) []string {
	lines := []string{ann.Raw}
	for _, entry := range ann.Entries {
		lines = append(lines, entry.Raw)
	}
	return lines
}

func paramLine(name string, fact inference.TypeFact) string {
	if fact.Certainty == inference.Unknown {
		return "---@param " + name + " any" + placeholderTypeSuffix
	}
	return "---@param " + name + " " + fact.Type
}

func returnLine(fact inference.TypeFact) string {
	if fact.Certainty == inference.Unknown {
		return "---@return any" + placeholderTypeSuffix
	}
	return "---@return " + fact.Type
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
