// Package header renders the reduced public-signature view of a module: the
// exported members only, with the module-local identifier stripped from each
// signature. It consumes the parse result before any annotation merging, so
// the view reflects what is written in the source, not what was inferred.
package header

import (
	"errors"
	"strings"

	"github.com/ChrisGVE/lua-tools/annotation"
	"github.com/ChrisGVE/lua-tools/parser"
)

// ErrNoModule is returned for files that do not return a module table.
var ErrNoModule = errors.New("file returns no module table")

// Extract renders the header view for one parsed file.
func Extract(file *parser.File) (string, error) {
	if file.Module == nil {
		return "", ErrNoModule
	}
	mod := file.Module

	var b strings.Builder
	b.WriteString("-- Lua Module Header\n")
	b.WriteString("---@module " + mod.Name + "\n")

	var fields, functions []*parser.Member
	for _, member := range mod.Members {
		if _, ok := member.Decl.(*parser.FunctionStmt); ok {
			functions = append(functions, member)
			continue
		}
		if isFunctionAssignment(member.Decl) {
			functions = append(functions, member)
			continue
		}
		fields = append(fields, member)
	}

	for _, member := range fields {
		b.WriteString("---@field " + member.Name + " " + fieldType(member.Decl) + "\n")
	}

	for _, member := range functions {
		b.WriteByte('\n')
		writeDoc(&b, member.Decl)
		b.WriteString(signature(file, mod, member))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func isFunctionAssignment(decl parser.Decl) bool {
	switch d := decl.(type) {
	case *parser.AssignStmt:
		if len(d.Values) > 0 {
			_, ok := d.Values[0].(*parser.FunctionExpr)
			return ok
		}
	case *parser.LocalStmt:
		if len(d.Values) > 0 {
			_, ok := d.Values[0].(*parser.FunctionExpr)
			return ok
		}
	}
	return false
}

// fieldType reads the member's @type annotation when one exists.
func fieldType(decl parser.Decl) string {
	doc := decl.Doc()
	if doc.Empty() || len(doc.Annotations) == 0 {
		return "any"
	}
	block := annotation.Parse(doc.Annotations)
	if a := block.Find(annotation.KindType); a != nil && a.Type != "" {
		return a.Type
	}
	return "any"
}

// writeDoc re-emits the member's doc block verbatim, prefixes included.
func writeDoc(b *strings.Builder, decl parser.Decl) {
	doc := decl.Doc()
	if doc.Empty() {
		return
	}
	for _, tok := range doc.Description {
		b.WriteString(tok.Text)
		b.WriteByte('\n')
	}
	for _, tok := range doc.Annotations {
		b.WriteString(tok.Text)
		b.WriteByte('\n')
	}
}

// signature renders `function <member>(<params>) end` with the parameter
// list taken verbatim from the source, so multi-line lists survive as
// written. The module identifier and the dot or colon after it are dropped.
func signature(file *parser.File, mod *parser.Module, member *parser.Member) string {
	span := member.Decl.Span()
	if fn, ok := member.Decl.(*parser.AssignStmt); ok && len(fn.Values) > 0 {
		if fe, ok := fn.Values[0].(*parser.FunctionExpr); ok {
			span = fe.Span()
		}
	}
	params := paramsText(file.Source, span.Start)
	name := member.Name
	return "function " + name + params + " end"
}

// paramsText slices the source from the first `(` at or after start through
// the matching `)`.
func paramsText(source string, start int) string {
	open := strings.IndexByte(source[start:], '(')
	if open < 0 {
		return "()"
	}
	open += start
	end := strings.IndexByte(source[open:], ')')
	if end < 0 {
		return "()"
	}
	return source[open : open+end+1]
}
