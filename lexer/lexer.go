package lexer

import (
	"fmt"
	"strings"
)

// LexError reports an unterminated string or long bracket. It aborts the
// pipeline for the offending file only.
type LexError struct {
	Line   int
	Column int
	Msg    string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

// Lexer performs a single pass over Lua source text.
type Lexer struct {
	input string
	pos   int
	line  int
	col   int
}

// New creates a Lexer for the given source.
func New(input string) *Lexer {
	return &Lexer{input: input, line: 1, col: 1}
}

// Tokenize converts source text into a token sequence terminated by an EOF
// token. It fails with *LexError on an unterminated string or long bracket.
func Tokenize(source string) ([]Token, error) {
	return New(source).Tokenize()
}

// Tokenize scans the whole input.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == KindEOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) atEnd() bool { return l.pos >= len(l.input) }

func (l *Lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) advance() byte {
	ch := l.input[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func (l *Lexer) skipSpace() {
	for !l.atEnd() {
		switch l.peek() {
		case ' ', '\t', '\r', '\n':
			l.advance()
		default:
			return
		}
	}
}

// mark captures the current position for building a token.
type mark struct {
	offset, line, col int
}

func (l *Lexer) mark() mark { return mark{l.pos, l.line, l.col} }

func (l *Lexer) token(kind Kind, m mark) Token {
	return Token{Kind: kind, Text: l.input[m.offset:l.pos], Offset: m.offset, Line: m.line, Column: m.col}
}

func (l *Lexer) next() (Token, error) {
	l.skipSpace()
	m := l.mark()
	if l.atEnd() {
		return Token{Kind: KindEOF, Offset: l.pos, Line: l.line, Column: l.col}, nil
	}

	ch := l.peek()
	switch {
	case ch == '-' && l.peekAt(1) == '-':
		return l.comment(m)
	case isIdentStart(ch):
		return l.identifier(m), nil
	case ch >= '0' && ch <= '9':
		return l.number(m), nil
	case ch == '.' && l.peekAt(1) >= '0' && l.peekAt(1) <= '9':
		return l.number(m), nil
	case ch == '"' || ch == '\'':
		return l.shortString(m)
	case ch == '[' && (l.peekAt(1) == '[' || l.peekAt(1) == '='):
		if lvl, ok := l.longBracketLevel(0); ok {
			return l.longString(m, lvl, KindString)
		}
		l.advance()
		return l.token(KindPunct, m), nil
	default:
		return l.operatorOrPunct(m), nil
	}
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}

func (l *Lexer) identifier(m mark) Token {
	for !l.atEnd() && isIdentPart(l.peek()) {
		l.advance()
	}
	tok := l.token(KindIdent, m)
	if IsKeyword(tok.Text) {
		tok.Kind = KindKeyword
	}
	return tok
}

func (l *Lexer) number(m mark) Token {
	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.advance()
		l.advance()
		for !l.atEnd() && isHexDigit(l.peek()) {
			l.advance()
		}
		return l.token(KindNumber, m)
	}
	for !l.atEnd() {
		ch := l.peek()
		if (ch >= '0' && ch <= '9') || ch == '.' {
			l.advance()
			continue
		}
		if ch == 'e' || ch == 'E' {
			l.advance()
			if l.peek() == '+' || l.peek() == '-' {
				l.advance()
			}
			continue
		}
		break
	}
	return l.token(KindNumber, m)
}

func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func (l *Lexer) shortString(m mark) (Token, error) {
	quote := l.advance()
	for !l.atEnd() {
		ch := l.peek()
		if ch == '\\' {
			l.advance()
			if !l.atEnd() {
				l.advance()
			}
			continue
		}
		if ch == '\n' {
			return Token{}, &LexError{Line: m.line, Column: m.col, Msg: "unterminated string literal"}
		}
		l.advance()
		if ch == quote {
			return l.token(KindString, m), nil
		}
	}
	return Token{}, &LexError{Line: m.line, Column: m.col, Msg: "unterminated string literal"}
}

// longBracketLevel checks for an opening long bracket `[=*[` at offset skip
// from the current position, returning the fence level without consuming.
func (l *Lexer) longBracketLevel(skip int) (int, bool) {
	if l.peekAt(skip) != '[' {
		return 0, false
	}
	lvl := 0
	for l.peekAt(skip+1+lvl) == '=' {
		lvl++
	}
	if l.peekAt(skip+1+lvl) == '[' {
		return lvl, true
	}
	return 0, false
}

// longString consumes a level-matched long bracket, scanning for the closing
// `]=*]` of the same level rather than the first `]]`.
func (l *Lexer) longString(m mark, level int, kind Kind) (Token, error) {
	// consume opening [=*[
	for i := 0; i < level+2; i++ {
		l.advance()
	}
	closing := "]" + strings.Repeat("=", level) + "]"
	idx := strings.Index(l.input[l.pos:], closing)
	if idx < 0 {
		what := "long string"
		if kind == KindCommentBlock {
			what = "block comment"
		}
		return Token{}, &LexError{Line: m.line, Column: m.col, Msg: "unterminated " + what}
	}
	for n := 0; n < idx+len(closing); n++ {
		l.advance()
	}
	return l.token(kind, m), nil
}

// comment classifies a `--` run. The returned token text is the raw comment
// including every leading dash, so `---@param x -number` round-trips without
// a synthetic space after the marker.
func (l *Lexer) comment(m mark) (Token, error) {
	l.advance()
	l.advance()
	// block comment: --[[ or --[=[ fence
	if lvl, ok := l.longBracketLevel(0); ok {
		return l.longString(m, lvl, KindCommentBlock)
	}
	dashes := 0
	for l.peek() == '-' {
		dashes++
		l.advance()
	}
	for !l.atEnd() && l.peek() != '\n' {
		l.advance()
	}
	tok := l.token(KindComment, m)
	if dashes == 1 {
		// exactly three dashes total
		rest := tok.Text[3:]
		switch {
		case strings.HasPrefix(rest, "@"):
			tok.Kind = KindCommentAnnot
		case strings.HasPrefix(rest, "|"):
			tok.Kind = KindCommentAlias
		default:
			tok.Kind = KindCommentDoc
		}
	}
	return tok, nil
}

func (l *Lexer) operatorOrPunct(m mark) Token {
	ch := l.advance()
	switch ch {
	case '(', ')', '{', '}', '[', ']', ';', ',':
		return l.token(KindPunct, m)
	case ':':
		if l.peek() == ':' {
			l.advance()
			return l.token(KindOperator, m) // goto label ::
		}
		return l.token(KindPunct, m)
	case '.':
		if l.peek() == '.' {
			l.advance()
			if l.peek() == '.' {
				l.advance()
			}
			return l.token(KindOperator, m) // .. or ...
		}
		return l.token(KindPunct, m)
	case '=':
		if l.peek() == '=' {
			l.advance()
		}
		return l.token(KindOperator, m)
	case '~', '<', '>':
		if l.peek() == '=' {
			l.advance()
		} else if (ch == '<' && l.peek() == '<') || (ch == '>' && l.peek() == '>') {
			l.advance()
		}
		return l.token(KindOperator, m)
	case '/':
		if l.peek() == '/' {
			l.advance()
		}
		return l.token(KindOperator, m)
	case '+', '-', '*', '%', '^', '#', '&', '|':
		return l.token(KindOperator, m)
	default:
		return l.token(KindPunct, m)
	}
}
