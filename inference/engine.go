package inference

import (
	"sort"
	"strings"

	"github.com/ChrisGVE/lua-tools/annotation"
	"github.com/ChrisGVE/lua-tools/parser"
)

// Catalogue answers type lookups for symbols defined outside the project,
// the standard library and any active framework surface. It is consulted
// before project-local resolution.
type Catalogue interface {
	// Lookup resolves a dotted symbol such as "string.format" or
	// "vim.api.nvim_buf_get_lines" to the return type of calling it.
	Lookup(symbol string) (TypeFact, bool)
}

// Resolver answers cross-file call lookups. The callee is the dotted name as
// written at the call site; the resolver follows require aliases recorded for
// the calling file.
type Resolver interface {
	ResolveCall(fromPath, callee string) ([]Slot, bool)
}

// Engine infers type facts for every declaration in a file. Both
// collaborators may be nil; the engine then works from the file alone.
type Engine struct {
	catalogue Catalogue
	resolver  Resolver
}

// New returns an engine using the given external catalogue and cross-file
// resolver.
func New(catalogue Catalogue, resolver Resolver) *Engine {
	return &Engine{catalogue: catalogue, resolver: resolver}
}

// FileResult holds the inference output for one file.
type FileResult struct {
	// Decls maps each declaration to its result.
	Decls map[parser.Decl]*Result
	// Order lists declarations in source order.
	Order []parser.Decl
	// Exports maps module member names to their results when the file
	// returns a module table.
	Exports map[string]*Result
}

// Result returns the inference result for a declaration, or nil.
func (fr *FileResult) Result(decl parser.Decl) *Result {
	if fr == nil {
		return nil
	}
	return fr.Decls[decl]
}

// Signature renders a canonical form of the whole file result. Two passes
// reached a fixed point when their signatures match.
func (fr *FileResult) Signature() string {
	var b strings.Builder
	for _, decl := range fr.Order {
		b.WriteString(decl.DeclName())
		b.WriteByte('=')
		b.WriteString(fr.Decls[decl].Signature())
		b.WriteByte('\n')
	}
	names := make([]string, 0, len(fr.Exports))
	for name := range fr.Exports {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString("export ")
		b.WriteString(name)
		b.WriteByte('\n')
	}
	return b.String()
}

// Regressed reports whether any declaration lost certainty relative to a
// previous pass over the same parse tree.
func (fr *FileResult) Regressed(prev *FileResult) bool {
	if prev == nil {
		return false
	}
	for decl, r := range fr.Decls {
		if r.Regressed(prev.Decls[decl]) {
			return true
		}
	}
	return false
}

// InferFile walks the file and produces a result for every declaration.
// Existing annotations seed their slots at the uncertain grade; literal
// evidence raises certainty, never the other way around.
func (e *Engine) InferFile(file *parser.File) *FileResult {
	w := &walker{
		engine: e,
		file:   file,
		out: &FileResult{
			Decls:   make(map[parser.Decl]*Result),
			Exports: make(map[string]*Result),
		},
		locals: make(map[string]TypeFact),
		funcs:  make(map[string]*Result),
	}
	w.block(file.Block)
	if file.Module != nil {
		for _, member := range file.Module.Members {
			if r, ok := w.out.Decls[member.Decl]; ok {
				w.out.Exports[member.Name] = r
			}
		}
	}
	return w.out
}

// walker carries the per-file state of one inference run.
type walker struct {
	engine *Engine
	file   *parser.File
	out    *FileResult

	locals map[string]TypeFact
	funcs  map[string]*Result
}

func (w *walker) record(decl parser.Decl, r *Result) {
	w.out.Decls[decl] = r
	w.out.Order = append(w.out.Order, decl)
}

func (w *walker) block(b *parser.Block) {
	if b == nil {
		return
	}
	for _, stmt := range b.Stmts {
		switch s := stmt.(type) {
		case *parser.LocalStmt:
			w.localStmt(s)
		case *parser.AssignStmt:
			w.assignStmt(s)
		case *parser.FunctionStmt:
			w.functionStmt(s)
		case *parser.IfStmt:
			for _, branch := range s.Branches {
				w.block(branch)
			}
		case *parser.LoopStmt:
			w.block(s.Body)
		case *parser.DoStmt:
			w.block(s.Body)
		}
	}
}

func (w *walker) localStmt(s *parser.LocalStmt) {
	r := &Result{}
	seedBinding(r, s.Doc())
	for i, name := range s.Names {
		if i >= len(s.Values) {
			break
		}
		if fn, ok := s.Values[i].(*parser.FunctionExpr); ok {
			fr := w.inferFunction(fn.Params, fn.Vararg, fn.Body, s.Doc())
			if i == 0 {
				r = fr
				r.Binding.Add("function", VariantCertain)
			}
			w.funcs[name] = fr
			w.locals[name] = TypeFact{Type: "function", Certainty: Certain}
			continue
		}
		fact := w.exprFact(s.Values[i], nil)
		w.locals[name] = fact
		if i == 0 {
			r.Binding.AddFact(fact)
		}
	}
	w.record(s, r)
}

func (w *walker) assignStmt(s *parser.AssignStmt) {
	r := &Result{}
	seedBinding(r, s.Doc())
	for i, target := range s.Targets {
		if i >= len(s.Values) {
			break
		}
		if fn, ok := s.Values[i].(*parser.FunctionExpr); ok {
			fr := w.inferFunction(fn.Params, fn.Vararg, fn.Body, s.Doc())
			if i == 0 {
				r = fr
				r.Binding.Add("function", VariantCertain)
			}
			w.funcs[target] = fr
			continue
		}
		fact := w.exprFact(s.Values[i], nil)
		if i == 0 {
			r.Binding.AddFact(fact)
		}
	}
	w.record(s, r)
}

func (w *walker) functionStmt(s *parser.FunctionStmt) {
	r := w.inferFunction(s.Params, s.Vararg, s.Body, s.Doc())
	r.Binding.Add("function", VariantCertain)
	w.funcs[s.Name] = r
	w.record(s, r)
}

// inferFunction runs three passes over a function: annotation seeding,
// operator-based parameter leaning, then return collection with the
// parameter facts in scope.
func (w *walker) inferFunction(params []parser.Param, vararg bool, body *parser.Block, doc *parser.DocBlock) *Result {
	r := &Result{Params: make([]Slot, len(params))}
	for _, p := range params {
		r.ParamNames = append(r.ParamNames, p.Name)
	}
	seedFunction(r, doc)

	paramIndex := make(map[string]int, len(params))
	for i, p := range params {
		paramIndex[p.Name] = i
	}
	leanParams(r, paramIndex, body)

	scope := make(map[string]TypeFact, len(w.locals)+len(params))
	for name, fact := range w.locals {
		scope[name] = fact
	}
	for i, p := range params {
		scope[p.Name] = r.Params[i].Fact()
	}

	valued := w.collectReturns(r, body, scope)
	if !valued {
		r.NoReturn = true
	}
	return r
}

// collectReturns records one variant per return site and slot, descending
// into control flow but never into nested function literals. It reports
// whether any valued return was seen.
func (w *walker) collectReturns(r *Result, b *parser.Block, scope map[string]TypeFact) bool {
	if b == nil {
		return false
	}
	valued := false
	for _, stmt := range b.Stmts {
		switch s := stmt.(type) {
		case *parser.ReturnStmt:
			if len(s.Values) == 0 {
				continue
			}
			valued = true
			for len(r.Returns) < len(s.Values) {
				r.Returns = append(r.Returns, Slot{})
			}
			for i, v := range s.Values {
				r.Returns[i].AddFact(w.exprFact(v, scope))
			}
		case *parser.LocalStmt:
			for i, name := range s.Names {
				if i < len(s.Values) {
					scope[name] = w.exprFact(s.Values[i], scope)
				}
			}
		case *parser.IfStmt:
			for _, branch := range s.Branches {
				if w.collectReturns(r, branch, scope) {
					valued = true
				}
			}
		case *parser.LoopStmt:
			if w.collectReturns(r, s.Body, scope) {
				valued = true
			}
		case *parser.DoStmt:
			if w.collectReturns(r, s.Body, scope) {
				valued = true
			}
		}
	}
	return valued
}

// exprFact computes the fact for one expression. A nil scope means top level,
// where only file locals are visible.
func (w *walker) exprFact(expr parser.Expr, scope map[string]TypeFact) TypeFact {
	switch e := expr.(type) {
	case *parser.Literal:
		return literalFact(e)
	case *parser.Ident:
		if scope != nil {
			if fact, ok := scope[e.Name]; ok {
				return fact
			}
		}
		if fact, ok := w.locals[e.Name]; ok {
			return fact
		}
		if w.engine.catalogue != nil {
			if fact, ok := w.engine.catalogue.Lookup(e.Name); ok {
				return fact
			}
		}
		return UnknownFact()
	case *parser.UnaryExpr:
		return w.unaryFact(e, scope)
	case *parser.BinaryExpr:
		return w.binaryFact(e, scope)
	case *parser.CallExpr:
		return w.callFact(e, scope)
	case *parser.FunctionExpr:
		return TypeFact{Type: "function", Certainty: Certain}
	case *parser.TableExpr:
		return TypeFact{Type: "table", Certainty: Certain}
	default:
		return UnknownFact()
	}
}

func literalFact(e *parser.Literal) TypeFact {
	switch e.Kind {
	case parser.LiteralString:
		return TypeFact{Type: "string", Certainty: Certain}
	case parser.LiteralNumber:
		return TypeFact{Type: "number", Certainty: Certain}
	case parser.LiteralBoolean:
		return TypeFact{Type: "boolean", Certainty: Certain}
	case parser.LiteralNil:
		return TypeFact{Type: "nil", Certainty: Certain}
	default:
		return UnknownFact()
	}
}

func (w *walker) unaryFact(e *parser.UnaryExpr, scope map[string]TypeFact) TypeFact {
	operand := w.exprFact(e.Operand, scope)
	switch e.Op {
	case "not":
		return TypeFact{Type: "boolean", Certainty: Certain}
	case "#":
		return TypeFact{Type: "integer", Certainty: Certain}
	case "-", "~":
		// The operator itself is evidence of a numeric operand.
		c := operand.Certainty
		if c == Unknown {
			c = Uncertain
		}
		return TypeFact{Type: "number", Certainty: c}
	default:
		return UnknownFact()
	}
}

func (w *walker) binaryFact(e *parser.BinaryExpr, scope map[string]TypeFact) TypeFact {
	left := w.exprFact(e.Left, scope)
	right := w.exprFact(e.Right, scope)
	joined := Join(left.Certainty, right.Certainty)
	switch e.Op {
	case "+", "-", "*", "/", "//", "%", "^", "&", "|", "~", "<<", ">>":
		if joined == Unknown {
			joined = Uncertain
		}
		return TypeFact{Type: "number", Certainty: joined}
	case "..":
		if joined == Unknown {
			joined = Uncertain
		}
		return TypeFact{Type: "string", Certainty: joined}
	case "==", "~=", "<", "<=", ">", ">=":
		return TypeFact{Type: "boolean", Certainty: Certain}
	case "and", "or":
		if left.Type == right.Type {
			return TypeFact{Type: left.Type, Certainty: joined}
		}
		if left.Certainty == Unknown || right.Certainty == Unknown {
			return UnknownFact()
		}
		return TypeFact{Type: left.Type + "|" + right.Type, Certainty: Uncertain}
	default:
		return UnknownFact()
	}
}

// callFact resolves the return type of a call: external catalogue first,
// then functions already inferred in this file, then cross-file resolution.
// The callee's certainty is ⊕-joined with the certainty of the arguments.
func (w *walker) callFact(e *parser.CallExpr, scope map[string]TypeFact) TypeFact {
	argJoin := Certain
	for _, arg := range e.Args {
		argJoin = Join(argJoin, w.exprFact(arg, scope).Certainty)
	}
	if w.engine.catalogue != nil {
		if fact, ok := w.engine.catalogue.Lookup(e.Callee); ok {
			return TypeFact{Type: fact.Type, Certainty: Join(fact.Certainty, argJoin)}
		}
	}
	if fn, ok := w.funcs[e.Callee]; ok {
		return firstReturn(fn, argJoin)
	}
	if w.engine.resolver != nil {
		if slots, ok := w.engine.resolver.ResolveCall(w.file.Path, e.Callee); ok {
			if len(slots) == 0 {
				return TypeFact{Type: "nil", Certainty: Uncertain}
			}
			fact := slots[0].Fact()
			return TypeFact{Type: fact.Type, Certainty: Join(fact.Certainty, argJoin)}
		}
	}
	return UnknownFact()
}

func firstReturn(fn *Result, argJoin Certainty) TypeFact {
	if fn.NoReturn {
		return TypeFact{Type: "nil", Certainty: Certain}
	}
	if len(fn.Returns) == 0 {
		return UnknownFact()
	}
	fact := fn.Returns[0].Fact()
	return TypeFact{Type: fact.Type, Certainty: Join(fact.Certainty, argJoin)}
}

// leanParams scans a body for operator usage of bare parameters and records
// a likely variant per observation: arithmetic leans numeric, concatenation
// leans string. Nested function literals are skipped, their parameters
// shadow the outer ones.
func leanParams(r *Result, params map[string]int, b *parser.Block) {
	if b == nil {
		return
	}
	var exprWalk func(parser.Expr)
	lean := func(e parser.Expr, typeExpr string) {
		if id, ok := e.(*parser.Ident); ok {
			if i, ok := params[id.Name]; ok {
				r.Params[i].Add(typeExpr, VariantLikely)
			}
		}
	}
	exprWalk = func(e parser.Expr) {
		switch x := e.(type) {
		case *parser.BinaryExpr:
			switch x.Op {
			case "+", "-", "*", "/", "//", "%", "^":
				lean(x.Left, "number")
				lean(x.Right, "number")
			case "..":
				lean(x.Left, "string")
				lean(x.Right, "string")
			}
			exprWalk(x.Left)
			exprWalk(x.Right)
		case *parser.UnaryExpr:
			if x.Op == "-" {
				lean(x.Operand, "number")
			}
			exprWalk(x.Operand)
		case *parser.CallExpr:
			for _, arg := range x.Args {
				exprWalk(arg)
			}
		case *parser.TableExpr:
			for _, f := range x.Fields {
				exprWalk(f.Value)
			}
		}
	}
	var stmtWalk func(*parser.Block)
	stmtWalk = func(b *parser.Block) {
		for _, stmt := range b.Stmts {
			switch s := stmt.(type) {
			case *parser.LocalStmt:
				for _, v := range s.Values {
					exprWalk(v)
				}
			case *parser.AssignStmt:
				for _, v := range s.Values {
					exprWalk(v)
				}
			case *parser.ReturnStmt:
				for _, v := range s.Values {
					exprWalk(v)
				}
			case *parser.CallStmt:
				exprWalk(s.Call)
			case *parser.IfStmt:
				for _, branch := range s.Branches {
					stmtWalk(branch)
				}
			case *parser.LoopStmt:
				stmtWalk(s.Body)
			case *parser.DoStmt:
				stmtWalk(s.Body)
			}
		}
	}
	stmtWalk(b)
}

// seedFunction feeds the declaration's existing annotations into the result
// at the uncertain grade. Written annotations are trusted but not verified.
func seedFunction(r *Result, doc *parser.DocBlock) {
	block := parseDoc(doc)
	if block == nil {
		return
	}
	for _, a := range block.Params() {
		if a.Type == "" {
			continue
		}
		for i, name := range r.ParamNames {
			if name == a.Name {
				r.Params[i].AddSeed(a.Type)
			}
		}
	}
	for i, a := range block.Returns() {
		if a.Type == "" {
			continue
		}
		for len(r.Returns) <= i {
			r.Returns = append(r.Returns, Slot{})
		}
		r.Returns[i].AddSeed(a.Type)
	}
}

// seedBinding feeds an existing @type annotation into a binding result.
func seedBinding(r *Result, doc *parser.DocBlock) {
	block := parseDoc(doc)
	if block == nil {
		return
	}
	if a := block.Find(annotation.KindType); a != nil && a.Type != "" {
		r.Binding.AddSeed(a.Type)
	}
}

func parseDoc(doc *parser.DocBlock) *annotation.Block {
	if doc.Empty() || len(doc.Annotations) == 0 {
		return nil
	}
	return annotation.Parse(doc.Annotations)
}
