// Package edit represents annotation merges as positional text edits and
// applies them to source text. Producing edits instead of rewriting files
// keeps the pipeline separate from any output policy.
package edit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ChrisGVE/lua-tools/lexer"
	"github.com/ChrisGVE/lua-tools/merge"
	"github.com/ChrisGVE/lua-tools/parser"
)

// Edit replaces the byte range [Start, End) of a source text with Text.
// An insertion has Start == End.
type Edit struct {
	Start int
	End   int
	Text  string
}

// ForFile converts merge results into edits over the file's source. A
// declaration with an existing doc block has the block replaced in place;
// one without gets the merged block inserted above it, matching the
// declaration's indentation.
func ForFile(file *parser.File, merged []*merge.Merged) []Edit {
	var edits []Edit
	for _, m := range merged {
		doc := m.Decl.Doc()
		if doc.Empty() {
			span := m.Decl.Span()
			lineStart := span.Start - (span.Column - 1)
			indent := file.Source[lineStart:span.Start]
			var b strings.Builder
			for _, line := range m.Lines {
				b.WriteString(indent)
				b.WriteString(line)
				b.WriteByte('\n')
			}
			edits = append(edits, Edit{Start: lineStart, End: lineStart, Text: b.String()})
			continue
		}
		first := firstToken(doc)
		last := lastToken(doc)
		lineStart := first.Offset - (first.Column - 1)
		indent := file.Source[lineStart:first.Offset]
		text := strings.Join(m.Lines, "\n"+indent)
		edits = append(edits, Edit{Start: first.Offset, End: last.End(), Text: text})
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].Start < edits[j].Start })
	return edits
}

// Apply performs the edits on source. Edits must not overlap.
func Apply(source string, edits []Edit) (string, error) {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	pos := 0
	for _, e := range sorted {
		if e.Start < pos {
			return "", fmt.Errorf("overlapping edit at offset %d", e.Start)
		}
		if e.End > len(source) || e.Start > e.End {
			return "", fmt.Errorf("edit range [%d,%d) out of bounds", e.Start, e.End)
		}
		b.WriteString(source[pos:e.Start])
		b.WriteString(e.Text)
		pos = e.End
	}
	b.WriteString(source[pos:])
	return b.String(), nil
}

func firstToken(doc *parser.DocBlock) lexer.Token {
	if len(doc.Description) > 0 {
		return doc.Description[0]
	}
	return doc.Annotations[0]
}

func lastToken(doc *parser.DocBlock) lexer.Token {
	if len(doc.Annotations) > 0 {
		return doc.Annotations[len(doc.Annotations)-1]
	}
	return doc.Description[len(doc.Description)-1]
}
