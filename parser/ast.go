// Package parser builds a recoverable abstract syntax tree from a Lua token
// stream, attaching the leading doc-comment block to each declaration and
// detecting the module table a file returns.
package parser

import (
	"strings"

	"github.com/ChrisGVE/lua-tools/lexer"
)

// Span locates a node in the source file by byte offsets.
type Span struct {
	Start  int
	End    int
	Line   int
	Column int
}

// Node is any AST element.
type Node interface {
	Span() Span
}

// Diagnostic records a recoverable parse problem. The surrounding file still
// parses; the offending statement is kept as an Opaque node.
type Diagnostic struct {
	Line    int
	Column  int
	Message string
}

// DocBlock is the contiguous comment run immediately above a declaration.
// Description holds the leading free-text `---` lines; Annotations holds the
// ordered raw annotation tokens from the first `---@`/`---|` line onward.
type DocBlock struct {
	Description []lexer.Token
	Annotations []lexer.Token
}

// Empty reports whether the block carries no comment at all.
func (d *DocBlock) Empty() bool {
	return d == nil || (len(d.Description) == 0 && len(d.Annotations) == 0)
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// LiteralKind discriminates literal expressions.
type LiteralKind string

const (
	LiteralString  LiteralKind = "string"
	LiteralNumber  LiteralKind = "number"
	LiteralBoolean LiteralKind = "boolean"
	LiteralNil     LiteralKind = "nil"
	LiteralVararg  LiteralKind = "vararg"
)

// Literal is a constant expression; Value keeps the raw source text.
type Literal struct {
	At    Span
	Kind  LiteralKind
	Value string
}

// Ident references a possibly dotted name (`M.helper`).
type Ident struct {
	At   Span
	Name string
}

// BinaryExpr is a binary operation.
type BinaryExpr struct {
	At    Span
	Op    string
	Left  Expr
	Right Expr
}

// UnaryExpr is a unary operation (`-x`, `not x`, `#t`).
type UnaryExpr struct {
	At      Span
	Op      string
	Operand Expr
}

// CallExpr is a function or method call with a named callee.
type CallExpr struct {
	At     Span
	Callee string
	Method bool // invoked with `:`
	Args   []Expr
}

// FunctionExpr is an anonymous function literal.
type FunctionExpr struct {
	At      Span
	Params  []Param
	Vararg  bool
	Body    *Block
}

// TableExpr is a table constructor.
type TableExpr struct {
	At     Span
	Fields []TableField
}

// TableField is one `name = value` entry of a table constructor. Positional
// entries have an empty Name.
type TableField struct {
	Name  string
	Value Expr
}

// OpaqueExpr preserves an expression the parser could not model.
type OpaqueExpr struct {
	At  Span
	Raw string
}

func (e *Literal) Span() Span      { return e.At }
func (e *Ident) Span() Span        { return e.At }
func (e *BinaryExpr) Span() Span   { return e.At }
func (e *UnaryExpr) Span() Span    { return e.At }
func (e *CallExpr) Span() Span     { return e.At }
func (e *FunctionExpr) Span() Span { return e.At }
func (e *TableExpr) Span() Span    { return e.At }
func (e *OpaqueExpr) Span() Span   { return e.At }

func (*Literal) exprNode()      {}
func (*Ident) exprNode()        {}
func (*BinaryExpr) exprNode()   {}
func (*UnaryExpr) exprNode()    {}
func (*CallExpr) exprNode()     {}
func (*FunctionExpr) exprNode() {}
func (*TableExpr) exprNode()    {}
func (*OpaqueExpr) exprNode()   {}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Decl is a declaration-like statement that may carry a doc block.
type Decl interface {
	Stmt
	Doc() *DocBlock
	DeclName() string
}

// Param is one function parameter.
type Param struct {
	Name string
}

// LocalStmt is `local a, b = x, y`.
type LocalStmt struct {
	At       Span
	DocBlock *DocBlock
	Names    []string
	Values   []Expr
}

// AssignStmt is `a.b = x` without `local`.
type AssignStmt struct {
	At       Span
	DocBlock *DocBlock
	Targets  []string
	Values   []Expr
}

// FunctionStmt covers `function f`, `function t.f`, `function t:f` and
// `local function f`. Method declarations carry the implicit self parameter.
type FunctionStmt struct {
	At       Span
	DocBlock *DocBlock
	Name     string // dotted, without the method part
	Method   bool
	IsLocal  bool
	Params   []Param
	Vararg   bool
	Body     *Block
}

// ReturnStmt is a `return` with zero or more values.
type ReturnStmt struct {
	At     Span
	Values []Expr
}

// IfStmt keeps only what inference needs: every branch body.
type IfStmt struct {
	At       Span
	Branches []*Block
}

// LoopStmt covers while/for/repeat bodies uniformly.
type LoopStmt struct {
	At   Span
	Body *Block
}

// DoStmt is a bare `do ... end` block.
type DoStmt struct {
	At   Span
	Body *Block
}

// CallStmt is an expression statement consisting of a call.
type CallStmt struct {
	At   Span
	Call *CallExpr
}

// CommentStmt is a standalone comment that is not attached to a declaration.
type CommentStmt struct {
	At    Span
	Token lexer.Token
}

// OpaqueStmt preserves the raw text of an unparseable statement.
type OpaqueStmt struct {
	At  Span
	Raw string
}

// Block is a statement sequence.
type Block struct {
	At    Span
	Stmts []Stmt
}

func (s *LocalStmt) Span() Span    { return s.At }
func (s *AssignStmt) Span() Span   { return s.At }
func (s *FunctionStmt) Span() Span { return s.At }
func (s *ReturnStmt) Span() Span   { return s.At }
func (s *IfStmt) Span() Span       { return s.At }
func (s *LoopStmt) Span() Span     { return s.At }
func (s *DoStmt) Span() Span       { return s.At }
func (s *CallStmt) Span() Span     { return s.At }
func (s *CommentStmt) Span() Span  { return s.At }
func (s *OpaqueStmt) Span() Span   { return s.At }
func (b *Block) Span() Span        { return b.At }

func (*LocalStmt) stmtNode()    {}
func (*AssignStmt) stmtNode()   {}
func (*FunctionStmt) stmtNode() {}
func (*ReturnStmt) stmtNode()   {}
func (*IfStmt) stmtNode()       {}
func (*LoopStmt) stmtNode()     {}
func (*DoStmt) stmtNode()       {}
func (*CallStmt) stmtNode()     {}
func (*CommentStmt) stmtNode()  {}
func (*OpaqueStmt) stmtNode()   {}
func (*Block) stmtNode()        {}

func (s *LocalStmt) Doc() *DocBlock    { return s.DocBlock }
func (s *AssignStmt) Doc() *DocBlock   { return s.DocBlock }
func (s *FunctionStmt) Doc() *DocBlock { return s.DocBlock }

func (s *LocalStmt) DeclName() string {
	if len(s.Names) == 0 {
		return ""
	}
	return s.Names[0]
}

func (s *AssignStmt) DeclName() string {
	if len(s.Targets) == 0 {
		return ""
	}
	return s.Targets[0]
}

// DeclName returns the full dotted name, `Table:method` for methods.
func (s *FunctionStmt) DeclName() string { return s.Name }

// Require records a top-level require("...") dependency.
type Require struct {
	At    Span
	Name  string // the required module path
	Alias string // local binding, empty for a bare call
}

// Module is the table value the file returns at top level.
type Module struct {
	Name    string // local identifier bound to the table
	Decl    *LocalStmt
	Members []*Member

	memberMap map[string]int
}

// Member is one exported member of a module.
type Member struct {
	Name string
	Decl Decl
}

// GetMember retrieves an exported member by name.
func (m *Module) GetMember(name string) *Member {
	if m == nil || m.memberMap == nil {
		return nil
	}
	if idx, ok := m.memberMap[name]; ok && idx < len(m.Members) {
		return m.Members[idx]
	}
	return nil
}

// AddMember registers an exported member, replacing a previous declaration
// of the same name.
func (m *Module) AddMember(name string, decl Decl) {
	if m.memberMap == nil {
		m.memberMap = make(map[string]int)
	}
	if idx, ok := m.memberMap[name]; ok {
		m.Members[idx].Decl = decl
		return
	}
	m.Members = append(m.Members, &Member{Name: name, Decl: decl})
	m.memberMap[name] = len(m.Members) - 1
}

// File is the parse result for one source file.
type File struct {
	Path        string
	Source      string
	Block       *Block
	Module      *Module
	Requires    []Require
	Diagnostics []Diagnostic
}

// endLine returns the last source line a token touches.
func endLine(tok lexer.Token) int {
	return tok.Line + strings.Count(tok.Text, "\n")
}
