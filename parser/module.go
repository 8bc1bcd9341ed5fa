package parser

import "strings"

// collectRequires records file-scope require("...") calls, both bare and
// bound to a local. Calls inside function bodies are intentionally ignored.
func collectRequires(block *Block) []Require {
	var requires []Require
	for _, stmt := range block.Stmts {
		switch s := stmt.(type) {
		case *LocalStmt:
			for i, value := range s.Values {
				if name, ok := requireTarget(value); ok {
					alias := ""
					if i < len(s.Names) {
						alias = s.Names[i]
					}
					requires = append(requires, Require{At: s.At, Name: name, Alias: alias})
				}
			}
		case *CallStmt:
			if name, ok := requireCall(s.Call); ok {
				requires = append(requires, Require{At: s.At, Name: name})
			}
		}
	}
	return requires
}

func requireTarget(expr Expr) (string, bool) {
	call, ok := expr.(*CallExpr)
	if !ok {
		return "", false
	}
	return requireCall(call)
}

func requireCall(call *CallExpr) (string, bool) {
	if call.Callee != "require" || len(call.Args) == 0 {
		return "", false
	}
	lit, ok := call.Args[0].(*Literal)
	if !ok || lit.Kind != LiteralString {
		return "", false
	}
	return unquote(lit.Value), true
}

// detectModule finds the table value the file returns at top level. The
// table may start empty or pre-populated, and the binding may be renamed
// before the terminal return; membership follows every alias of the table.
func detectModule(block *Block) *Module {
	// candidate table locals and their aliases, all pointing at the
	// originating declaration
	candidates := map[string]*LocalStmt{}
	members := map[*LocalStmt][]*Member{}

	addMember := func(decl *LocalStmt, name string, d Decl) {
		for i, m := range members[decl] {
			if m.Name == name {
				members[decl][i].Decl = d
				return
			}
		}
		members[decl] = append(members[decl], &Member{Name: name, Decl: d})
	}

	var returned string
	for _, stmt := range block.Stmts {
		switch s := stmt.(type) {
		case *LocalStmt:
			if len(s.Names) != 1 {
				continue
			}
			name := s.Names[0]
			if len(s.Values) == 1 {
				if existing, ok := aliasSource(s.Values[0], candidates); ok {
					candidates[name] = existing
					continue
				}
				if table, ok := s.Values[0].(*TableExpr); ok {
					candidates[name] = s
					for _, field := range table.Fields {
						if field.Name != "" {
							addMember(s, field.Name, s)
						}
					}
				}
			} else if len(s.Values) == 0 {
				// `local M` later assigned a table
				candidates[name] = s
			}
		case *AssignStmt:
			for _, target := range s.Targets {
				base, member, ok := splitMemberTarget(target)
				if !ok {
					continue
				}
				if decl, found := candidates[base]; found {
					addMember(decl, member, s)
				}
			}
		case *FunctionStmt:
			base, member, ok := splitMemberTarget(s.Name)
			if !ok {
				continue
			}
			if decl, found := candidates[base]; found {
				addMember(decl, member, s)
			}
		case *ReturnStmt:
			if len(s.Values) == 1 {
				if ident, ok := s.Values[0].(*Ident); ok && !strings.Contains(ident.Name, ".") {
					returned = ident.Name
				}
			}
		}
	}

	decl, ok := candidates[returned]
	if !ok {
		return nil
	}
	module := &Module{Name: returned, Decl: decl}
	for _, m := range members[decl] {
		module.AddMember(m.Name, m.Decl)
	}
	return module
}

// aliasSource resolves `local N = M` where M is a known candidate.
func aliasSource(expr Expr, candidates map[string]*LocalStmt) (*LocalStmt, bool) {
	ident, ok := expr.(*Ident)
	if !ok || strings.Contains(ident.Name, ".") {
		return nil, false
	}
	decl, found := candidates[ident.Name]
	return decl, found
}

// splitMemberTarget splits `M.helper` or `M:method` into base and member.
func splitMemberTarget(target string) (base, member string, ok bool) {
	if idx := strings.IndexByte(target, ':'); idx > 0 {
		base, member = target[:idx], target[idx+1:]
		return base, member, !strings.Contains(base, ".")
	}
	idx := strings.IndexByte(target, '.')
	if idx <= 0 {
		return "", "", false
	}
	base, member = target[:idx], target[idx+1:]
	// only one level deep counts as an exported member
	if strings.Contains(member, ".") {
		return "", "", false
	}
	return base, member, true
}
