// Package lexer provides tokenization for Lua source code, including the
// LSP doc-comment dialect (`---`, `---@tag`, `---|` and `--[[ ]]` forms)
// used by the annotation pipeline.
package lexer

// Kind classifies a token.
type Kind string

const (
	KindIdent          Kind = "IDENT"            // identifiers (foo, _bar)
	KindKeyword        Kind = "KEYWORD"          // Lua reserved words
	KindOperator       Kind = "OPERATOR"         // +, -, ==, .., ... etc.
	KindPunct          Kind = "PUNCT"            // ( ) { } [ ] ; , . :
	KindString         Kind = "STRING"           // string literals, short and long form
	KindNumber         Kind = "NUMBER"           // numeric literals
	KindComment        Kind = "COMMENT"          // plain -- comment
	KindCommentDoc     Kind = "COMMENT_DOC"      // exactly --- with no @
	KindCommentAnnot   Kind = "COMMENT_ANNOT"    // ---@tag ...
	KindCommentAlias   Kind = "COMMENT_ALIAS"    // ---| entry of an @alias
	KindCommentBlock   Kind = "COMMENT_BLOCK"    // --[[ ... ]] with optional = fences
	KindEOF            Kind = "EOF"
)

// Token is a single lexical unit. Text is preserved byte-for-byte from the
// source; for comment tokens it includes the full leading dash run.
type Token struct {
	Kind   Kind
	Text   string
	Offset int // byte offset of the first byte
	Line   int // 1-based
	Column int // 1-based, in bytes
}

// End returns the byte offset just past the token.
func (t Token) End() int {
	return t.Offset + len(t.Text)
}

// IsComment reports whether the token is any comment form.
func (t Token) IsComment() bool {
	switch t.Kind {
	case KindComment, KindCommentDoc, KindCommentAnnot, KindCommentAlias, KindCommentBlock:
		return true
	}
	return false
}

// IsDocComment reports whether the token participates in a declaration's
// leading documentation block.
func (t Token) IsDocComment() bool {
	switch t.Kind {
	case KindCommentDoc, KindCommentAnnot, KindCommentAlias, KindCommentBlock:
		return true
	}
	return false
}

var keywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "goto": true,
	"if": true, "in": true, "local": true, "nil": true, "not": true,
	"or": true, "repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,
}

// IsKeyword reports whether ident is a Lua reserved word.
func IsKeyword(ident string) bool {
	return keywords[ident]
}
