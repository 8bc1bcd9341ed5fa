package parser

import (
	"fmt"
	"strings"

	"github.com/ChrisGVE/lua-tools/lexer"
)

// Parser consumes a token stream into a File. It never fails hard: statements
// it cannot model are captured as Opaque nodes with a diagnostic and parsing
// continues with the next statement.
type Parser struct {
	tokens      []lexer.Token
	pos         int
	source      string
	diagnostics []Diagnostic
}

// New creates a Parser over a token stream.
func New(tokens []lexer.Token, source string) *Parser {
	return &Parser{tokens: tokens, source: source}
}

// ParseSource tokenizes and parses one file. The error is non-nil only for a
// lexer failure; parse problems surface as File.Diagnostics.
func ParseSource(path, source string) (*File, error) {
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return nil, fmt.Errorf("tokenize %s: %w", path, err)
	}
	file := New(tokens, source).Parse()
	file.Path = path
	return file, nil
}

// Parse consumes the whole stream.
func (p *Parser) Parse() *File {
	block := p.parseBlock(nil)
	file := &File{
		Source:      p.source,
		Block:       block,
		Diagnostics: p.diagnostics,
	}
	file.Requires = collectRequires(block)
	file.Module = detectModule(block)
	return file
}

func (p *Parser) peek() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Kind: lexer.KindEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(n int) lexer.Token {
	if p.pos+n >= len(p.tokens) {
		return lexer.Token{Kind: lexer.KindEOF}
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) advance() lexer.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) atEnd() bool { return p.peek().Kind == lexer.KindEOF }

func (p *Parser) is(kind lexer.Kind, text string) bool {
	tok := p.peek()
	return tok.Kind == kind && tok.Text == text
}

func (p *Parser) accept(kind lexer.Kind, text string) bool {
	if p.is(kind, text) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) diag(tok lexer.Token, format string, args ...any) {
	p.diagnostics = append(p.diagnostics, Diagnostic{
		Line:    tok.Line,
		Column:  tok.Column,
		Message: fmt.Sprintf(format, args...),
	})
}

func spanBetween(from, to lexer.Token) Span {
	return Span{Start: from.Offset, End: to.End(), Line: from.Line, Column: from.Column}
}

var blockTerminators = map[string]bool{
	"end": true, "else": true, "elseif": true, "until": true,
}

// parseBlock parses statements until a terminator keyword or EOF. The
// terminator itself is not consumed.
func (p *Parser) parseBlock(stop map[string]bool) *Block {
	start := p.peek()
	block := &Block{At: Span{Start: start.Offset, Line: start.Line, Column: start.Column}}
	var pending []lexer.Token

	flush := func() {
		for _, tok := range pending {
			block.Stmts = append(block.Stmts, &CommentStmt{At: tokenSpan(tok), Token: tok})
		}
		pending = nil
	}

	for !p.atEnd() {
		tok := p.peek()
		if tok.Kind == lexer.KindKeyword && stop != nil && stop[tok.Text] {
			break
		}
		if tok.IsDocComment() {
			// a gap in the run detaches earlier comments
			if len(pending) > 0 && tok.Line > endLine(pending[len(pending)-1])+1 {
				flush()
			}
			pending = append(pending, tok)
			p.advance()
			continue
		}
		if tok.Kind == lexer.KindComment {
			flush()
			block.Stmts = append(block.Stmts, &CommentStmt{At: tokenSpan(tok), Token: tok})
			p.advance()
			continue
		}
		var doc *DocBlock
		if len(pending) > 0 {
			if tok.Line <= endLine(pending[len(pending)-1])+1 {
				doc = splitDocBlock(pending)
				pending = nil
			} else {
				flush()
			}
		}
		stmt := p.parseStatement(doc)
		if stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
	}
	flush()
	if last := p.pos - 1; last >= 0 && last < len(p.tokens) {
		block.At.End = p.tokens[last].End()
	}
	return block
}

func tokenSpan(tok lexer.Token) Span {
	return Span{Start: tok.Offset, End: tok.End(), Line: tok.Line, Column: tok.Column}
}

// splitDocBlock separates the leading free-text lines from the annotation
// sequence. Everything from the first `---@` or `---|` line onward belongs to
// the annotation sequence.
func splitDocBlock(run []lexer.Token) *DocBlock {
	doc := &DocBlock{}
	inAnnotations := false
	for _, tok := range run {
		if tok.Kind == lexer.KindCommentAnnot || tok.Kind == lexer.KindCommentAlias {
			inAnnotations = true
		}
		if inAnnotations {
			doc.Annotations = append(doc.Annotations, tok)
		} else {
			doc.Description = append(doc.Description, tok)
		}
	}
	return doc
}

func (p *Parser) parseStatement(doc *DocBlock) Stmt {
	tok := p.peek()
	switch {
	case tok.Kind == lexer.KindKeyword:
		switch tok.Text {
		case "local":
			return p.parseLocal(doc)
		case "function":
			return p.parseFunction(doc, false)
		case "return":
			return p.parseReturn()
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "for":
			return p.parseFor()
		case "repeat":
			return p.parseRepeat()
		case "do":
			p.advance()
			body := p.parseBlock(blockTerminators)
			p.accept(lexer.KindKeyword, "end")
			return &DoStmt{At: spanBetween(tok, p.prev()), Body: body}
		case "break", "goto":
			return p.skipStatement(tok, false)
		default:
			return p.skipStatement(tok, true)
		}
	case tok.Kind == lexer.KindIdent:
		return p.parseExprStatement(doc)
	case tok.Kind == lexer.KindPunct && tok.Text == ";":
		p.advance()
		return nil
	default:
		return p.skipStatement(tok, true)
	}
}

func (p *Parser) prev() lexer.Token {
	if p.pos == 0 {
		return p.peek()
	}
	return p.tokens[p.pos-1]
}

// skipStatement consumes to the end of the current source line and keeps the
// raw text as an Opaque node.
func (p *Parser) skipStatement(tok lexer.Token, diagnose bool) Stmt {
	line := tok.Line
	last := tok
	for !p.atEnd() && p.peek().Line == line {
		last = p.advance()
	}
	span := spanBetween(tok, last)
	raw := ""
	if span.End <= len(p.source) && span.Start < span.End {
		raw = p.source[span.Start:span.End]
	}
	if diagnose {
		p.diag(tok, "unparseable statement starting at %q", firstWord(raw))
	}
	return &OpaqueStmt{At: span, Raw: raw}
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexAny(s, " \t\n"); idx > 0 {
		return s[:idx]
	}
	return s
}

func (p *Parser) parseLocal(doc *DocBlock) Stmt {
	start := p.advance() // local
	if p.is(lexer.KindKeyword, "function") {
		fn := p.parseFunction(doc, true)
		if fs, ok := fn.(*FunctionStmt); ok {
			fs.At.Start = start.Offset
			fs.At.Line = start.Line
			fs.At.Column = start.Column
		}
		return fn
	}
	stmt := &LocalStmt{DocBlock: doc}
	for {
		name := p.peek()
		if name.Kind != lexer.KindIdent {
			p.diag(name, "expected identifier after 'local'")
			return p.skipStatement(start, false)
		}
		p.advance()
		// attribute suffix <const>/<close>
		if p.is(lexer.KindOperator, "<") {
			for !p.atEnd() && !p.accept(lexer.KindOperator, ">") {
				p.advance()
			}
		}
		stmt.Names = append(stmt.Names, name.Text)
		if !p.accept(lexer.KindPunct, ",") {
			break
		}
	}
	if p.accept(lexer.KindOperator, "=") {
		stmt.Values = p.parseExprList()
	}
	stmt.At = spanBetween(start, p.prev())
	return stmt
}

func (p *Parser) parseFunction(doc *DocBlock, isLocal bool) Stmt {
	start := p.advance() // function
	name, method := p.parseFunctionName()
	if name == "" {
		p.diag(start, "function declaration without a name")
	}
	params, vararg := p.parseParams()
	body := p.parseBlock(blockTerminators)
	p.accept(lexer.KindKeyword, "end")
	return &FunctionStmt{
		At:       spanBetween(start, p.prev()),
		DocBlock: doc,
		Name:     name,
		Method:   method,
		IsLocal:  isLocal,
		Params:   params,
		Vararg:   vararg,
		Body:     body,
	}
}

// parseFunctionName reads `a.b.c` or `a.b:c`, returning the full name and
// whether the last segment was a method.
func (p *Parser) parseFunctionName() (string, bool) {
	if p.peek().Kind != lexer.KindIdent {
		return "", false
	}
	name := p.advance().Text
	for p.accept(lexer.KindPunct, ".") {
		if p.peek().Kind != lexer.KindIdent {
			return name, false
		}
		name += "." + p.advance().Text
	}
	if p.accept(lexer.KindPunct, ":") {
		if p.peek().Kind == lexer.KindIdent {
			name += ":" + p.advance().Text
			return name, true
		}
	}
	return name, false
}

func (p *Parser) parseParams() ([]Param, bool) {
	var params []Param
	vararg := false
	if !p.accept(lexer.KindPunct, "(") {
		return params, vararg
	}
	for !p.atEnd() && !p.is(lexer.KindPunct, ")") {
		tok := p.peek()
		switch {
		case tok.Kind == lexer.KindIdent:
			params = append(params, Param{Name: tok.Text})
			p.advance()
		case tok.Kind == lexer.KindOperator && tok.Text == "...":
			vararg = true
			p.advance()
		default:
			p.advance()
		}
		p.accept(lexer.KindPunct, ",")
	}
	p.accept(lexer.KindPunct, ")")
	return params, vararg
}

func (p *Parser) parseReturn() Stmt {
	start := p.advance() // return
	stmt := &ReturnStmt{}
	if !p.atEnd() && !p.returnEnds() {
		stmt.Values = p.parseExprList()
	}
	stmt.At = spanBetween(start, p.prev())
	return stmt
}

func (p *Parser) returnEnds() bool {
	tok := p.peek()
	if tok.Kind == lexer.KindKeyword && (blockTerminators[tok.Text] || tok.Text == "local" || tok.Text == "function" || tok.Text == "if" || tok.Text == "while" || tok.Text == "for" || tok.Text == "return") {
		return true
	}
	return tok.IsComment() || tok.Kind == lexer.KindEOF
}

func (p *Parser) parseIf() Stmt {
	start := p.advance() // if
	stmt := &IfStmt{}
	p.skipCondition("then")
	stmt.Branches = append(stmt.Branches, p.parseBlock(blockTerminators))
	for {
		if p.accept(lexer.KindKeyword, "elseif") {
			p.skipCondition("then")
			stmt.Branches = append(stmt.Branches, p.parseBlock(blockTerminators))
			continue
		}
		if p.accept(lexer.KindKeyword, "else") {
			stmt.Branches = append(stmt.Branches, p.parseBlock(blockTerminators))
			continue
		}
		break
	}
	p.accept(lexer.KindKeyword, "end")
	stmt.At = spanBetween(start, p.prev())
	return stmt
}

// skipCondition consumes tokens until the given keyword, tolerating nested
// parentheses. The condition itself does not feed inference.
func (p *Parser) skipCondition(until string) {
	depth := 0
	for !p.atEnd() {
		tok := p.peek()
		if depth == 0 && tok.Kind == lexer.KindKeyword && tok.Text == until {
			p.advance()
			return
		}
		if tok.Kind == lexer.KindPunct {
			switch tok.Text {
			case "(", "{", "[":
				depth++
			case ")", "}", "]":
				depth--
			}
		}
		p.advance()
	}
}

func (p *Parser) parseWhile() Stmt {
	start := p.advance() // while
	p.skipCondition("do")
	body := p.parseBlock(blockTerminators)
	p.accept(lexer.KindKeyword, "end")
	return &LoopStmt{At: spanBetween(start, p.prev()), Body: body}
}

func (p *Parser) parseFor() Stmt {
	start := p.advance() // for
	p.skipCondition("do")
	body := p.parseBlock(blockTerminators)
	p.accept(lexer.KindKeyword, "end")
	return &LoopStmt{At: spanBetween(start, p.prev()), Body: body}
}

func (p *Parser) parseRepeat() Stmt {
	start := p.advance() // repeat
	body := p.parseBlock(blockTerminators)
	p.accept(lexer.KindKeyword, "until")
	p.parseExpr()
	return &LoopStmt{At: spanBetween(start, p.prev()), Body: body}
}

// parseExprStatement handles assignments and call statements that start with
// an identifier.
func (p *Parser) parseExprStatement(doc *DocBlock) Stmt {
	start := p.peek()
	name, isCall := p.scanPrefix()
	if isCall {
		call := p.parseCallAfterName(name, start)
		return &CallStmt{At: spanBetween(start, p.prev()), Call: call}
	}
	stmt := &AssignStmt{DocBlock: doc, Targets: []string{name}}
	for p.accept(lexer.KindPunct, ",") {
		more, _ := p.scanPrefix()
		if more == "" {
			break
		}
		stmt.Targets = append(stmt.Targets, more)
	}
	if !p.accept(lexer.KindOperator, "=") {
		p.diag(start, "expected '=' in assignment to %s", name)
		return p.skipStatement(start, false)
	}
	stmt.Values = p.parseExprList()
	stmt.At = spanBetween(start, p.prev())
	return stmt
}

// scanPrefix reads a dotted (or method-colon) name; it reports whether a
// call follows.
func (p *Parser) scanPrefix() (string, bool) {
	if p.peek().Kind != lexer.KindIdent {
		return "", false
	}
	name := p.advance().Text
	for {
		if p.accept(lexer.KindPunct, ".") {
			if p.peek().Kind != lexer.KindIdent {
				return name, false
			}
			name += "." + p.advance().Text
			continue
		}
		if p.peek().Kind == lexer.KindPunct && p.peek().Text == ":" && p.peekAt(1).Kind == lexer.KindIdent {
			// method call prefix
			p.advance()
			name += ":" + p.advance().Text
			return name, true
		}
		break
	}
	tok := p.peek()
	if tok.Kind == lexer.KindPunct && (tok.Text == "(" || tok.Text == "{") {
		return name, true
	}
	if tok.Kind == lexer.KindString {
		return name, true
	}
	// indexed target like t[k]: treat the base name as the target
	if tok.Kind == lexer.KindPunct && tok.Text == "[" {
		depth := 0
		for !p.atEnd() {
			t := p.advance()
			if t.Kind == lexer.KindPunct && t.Text == "[" {
				depth++
			}
			if t.Kind == lexer.KindPunct && t.Text == "]" {
				depth--
				if depth == 0 {
					break
				}
			}
		}
	}
	return name, false
}

func (p *Parser) parseCallAfterName(name string, start lexer.Token) *CallExpr {
	call := &CallExpr{Callee: name, Method: strings.Contains(name, ":")}
	tok := p.peek()
	switch {
	case tok.Kind == lexer.KindString:
		p.advance()
		call.Args = append(call.Args, &Literal{At: tokenSpan(tok), Kind: LiteralString, Value: tok.Text})
	case tok.Kind == lexer.KindPunct && tok.Text == "{":
		call.Args = append(call.Args, p.parseTable())
	case p.accept(lexer.KindPunct, "("):
		for !p.atEnd() && !p.is(lexer.KindPunct, ")") {
			call.Args = append(call.Args, p.parseExpr())
			if !p.accept(lexer.KindPunct, ",") {
				break
			}
		}
		p.accept(lexer.KindPunct, ")")
	}
	call.At = spanBetween(start, p.prev())
	return call
}

func (p *Parser) parseExprList() []Expr {
	var exprs []Expr
	for {
		expr := p.parseExpr()
		if expr == nil {
			break
		}
		exprs = append(exprs, expr)
		if !p.accept(lexer.KindPunct, ",") {
			break
		}
	}
	return exprs
}

// Binary operator precedence per the Lua reference manual.
var binaryPrec = map[string]int{
	"or": 1, "and": 2,
	"<": 3, ">": 3, "<=": 3, ">=": 3, "~=": 3, "==": 3,
	"|": 4, "~": 5, "&": 6, "<<": 7, ">>": 7,
	"..": 9, "+": 10, "-": 10,
	"*": 11, "/": 11, "//": 11, "%": 11,
	"^": 14,
}

func (p *Parser) parseExpr() Expr {
	return p.parseBinary(0)
}

func (p *Parser) parseBinary(minPrec int) Expr {
	left := p.parseUnary()
	if left == nil {
		return nil
	}
	for {
		tok := p.peek()
		op := tok.Text
		if tok.Kind == lexer.KindKeyword && (op == "or" || op == "and") {
			// boolean operators are keywords
		} else if tok.Kind != lexer.KindOperator {
			return left
		}
		prec, ok := binaryPrec[op]
		if !ok || prec < minPrec {
			return left
		}
		p.advance()
		right := p.parseBinary(prec + 1)
		if right == nil {
			return left
		}
		left = &BinaryExpr{
			At:    Span{Start: left.Span().Start, End: right.Span().End, Line: left.Span().Line, Column: left.Span().Column},
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *Parser) parseUnary() Expr {
	tok := p.peek()
	if (tok.Kind == lexer.KindOperator && (tok.Text == "-" || tok.Text == "#" || tok.Text == "~")) ||
		(tok.Kind == lexer.KindKeyword && tok.Text == "not") {
		p.advance()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &UnaryExpr{At: spanBetween(tok, p.prev()), Op: tok.Text, Operand: operand}
	}
	return p.parseAtom()
}

func (p *Parser) parseAtom() Expr {
	tok := p.peek()
	switch tok.Kind {
	case lexer.KindNumber:
		p.advance()
		return &Literal{At: tokenSpan(tok), Kind: LiteralNumber, Value: tok.Text}
	case lexer.KindString:
		p.advance()
		return &Literal{At: tokenSpan(tok), Kind: LiteralString, Value: tok.Text}
	case lexer.KindKeyword:
		switch tok.Text {
		case "nil":
			p.advance()
			return &Literal{At: tokenSpan(tok), Kind: LiteralNil, Value: tok.Text}
		case "true", "false":
			p.advance()
			return &Literal{At: tokenSpan(tok), Kind: LiteralBoolean, Value: tok.Text}
		case "function":
			return p.parseFunctionExpr()
		}
		return nil
	case lexer.KindOperator:
		if tok.Text == "..." {
			p.advance()
			return &Literal{At: tokenSpan(tok), Kind: LiteralVararg, Value: tok.Text}
		}
		return nil
	case lexer.KindIdent:
		start := tok
		name, isCall := p.scanPrefix()
		if isCall {
			return p.parseCallAfterName(name, start)
		}
		return &Ident{At: spanBetween(start, p.prev()), Name: name}
	case lexer.KindPunct:
		switch tok.Text {
		case "{":
			return p.parseTable()
		case "(":
			p.advance()
			inner := p.parseExpr()
			p.accept(lexer.KindPunct, ")")
			return inner
		}
		return nil
	default:
		return nil
	}
}

func (p *Parser) parseFunctionExpr() Expr {
	start := p.advance() // function
	params, vararg := p.parseParams()
	body := p.parseBlock(blockTerminators)
	p.accept(lexer.KindKeyword, "end")
	return &FunctionExpr{At: spanBetween(start, p.prev()), Params: params, Vararg: vararg, Body: body}
}

func (p *Parser) parseTable() Expr {
	start := p.advance() // {
	table := &TableExpr{}
	for !p.atEnd() && !p.is(lexer.KindPunct, "}") {
		field := TableField{}
		tok := p.peek()
		if tok.Kind == lexer.KindIdent && p.peekAt(1).Kind == lexer.KindOperator && p.peekAt(1).Text == "=" {
			field.Name = tok.Text
			p.advance()
			p.advance()
			field.Value = p.parseExpr()
		} else if tok.Kind == lexer.KindPunct && tok.Text == "[" {
			p.advance()
			key := p.parseExpr()
			p.accept(lexer.KindPunct, "]")
			if lit, ok := key.(*Literal); ok && lit.Kind == LiteralString {
				field.Name = unquote(lit.Value)
			}
			p.accept(lexer.KindOperator, "=")
			field.Value = p.parseExpr()
		} else {
			field.Value = p.parseExpr()
		}
		if field.Value == nil {
			// recover inside a malformed constructor
			bad := p.advance()
			p.diag(bad, "unexpected token %q in table constructor", bad.Text)
			continue
		}
		table.Fields = append(table.Fields, field)
		if !p.accept(lexer.KindPunct, ",") && !p.accept(lexer.KindPunct, ";") {
			break
		}
	}
	p.accept(lexer.KindPunct, "}")
	table.At = spanBetween(start, p.prev())
	return table
}

// unquote strips the delimiters from a string literal's raw text.
func unquote(raw string) string {
	if len(raw) >= 2 && (raw[0] == '"' || raw[0] == '\'') {
		return raw[1 : len(raw)-1]
	}
	if strings.HasPrefix(raw, "[[") && strings.HasSuffix(raw, "]]") {
		return raw[2 : len(raw)-2]
	}
	return raw
}
