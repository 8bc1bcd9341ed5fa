package annotation

import (
	"strings"

	"golang.org/x/mod/semver"

	"github.com/ChrisGVE/lua-tools/lexer"
)

// Parse converts the raw annotation tokens of a declaration's doc block into
// a Block. Alias `---|` entry lines are absorbed into the immediately
// preceding @alias (or prior entry); a stray entry line becomes Opaque.
// Malformed tags are retained verbatim with ParseErr set, never dropped.
func Parse(tokens []lexer.Token) *Block {
	block := &Block{}
	var lastAlias *Annotation
	prevWasAliasish := false

	for _, tok := range tokens {
		switch tok.Kind {
		case lexer.KindCommentAlias:
			if prevWasAliasish && lastAlias != nil {
				lastAlias.Entries = append(lastAlias.Entries, parseAliasEntry(tok))
				continue
			}
			block.Annotations = append(block.Annotations, opaque(tok, "alias entry without preceding @alias"))
			prevWasAliasish = false
		case lexer.KindCommentAnnot:
			ann := parseLine(tok)
			block.Annotations = append(block.Annotations, ann)
			if ann.Kind == KindAlias {
				lastAlias = ann
				prevWasAliasish = true
			} else {
				prevWasAliasish = false
			}
		case lexer.KindCommentDoc, lexer.KindCommentBlock:
			block.Annotations = append(block.Annotations, &Annotation{
				Kind:        KindDoc,
				Prefix:      "---",
				Raw:         tok.Text,
				Line:        tok.Line,
				Offset:      tok.Offset,
				Description: strings.TrimSpace(strings.TrimPrefix(tok.Text, "---")),
			})
			prevWasAliasish = false
		default:
			prevWasAliasish = false
		}
	}
	return block
}

func opaque(tok lexer.Token, reason string) *Annotation {
	return &Annotation{
		Kind:     KindOpaque,
		Prefix:   "---",
		Raw:      tok.Text,
		Line:     tok.Line,
		Offset:   tok.Offset,
		ParseErr: reason,
	}
}

func parseAliasEntry(tok lexer.Token) AliasEntry {
	entry := AliasEntry{Raw: tok.Text, Line: tok.Line, Offset: tok.Offset}
	body := strings.TrimPrefix(tok.Text, "---|")
	if idx := strings.Index(body, "#"); idx >= 0 {
		entry.Description = strings.TrimSpace(body[idx+1:])
		body = body[:idx]
	}
	entry.Value = strings.Trim(strings.TrimSpace(body), "'\"")
	return entry
}

// parseLine parses one `---@tag ...` line.
func parseLine(tok lexer.Token) *Annotation {
	body := tok.Text[len("---@"):]
	tag := body
	rest := ""
	if idx := strings.IndexAny(body, " \t"); idx >= 0 {
		tag, rest = body[:idx], strings.TrimLeft(body[idx:], " \t")
	}

	ann := &Annotation{
		Kind:   Kind(tag),
		Prefix: "---@" + tag,
		Raw:    tok.Text,
		Line:   tok.Line,
		Offset: tok.Offset,
	}

	switch ann.Kind {
	case KindParam:
		parseParam(ann, rest)
	case KindReturn:
		parseReturn(ann, rest)
	case KindClass:
		parseClass(ann, rest)
	case KindField:
		parseField(ann, rest)
	case KindAlias:
		parseAlias(ann, rest)
	case KindType, KindVararg:
		ann.Type, ann.Description = scanType(rest)
	case KindCast:
		parseCast(ann, rest)
	case KindEnum:
		parseEnum(ann, rest)
	case KindVersion:
		parseVersion(ann, rest)
	case KindDiagnostic:
		parseDiagnostic(ann, rest)
	case KindGeneric, KindOperator, KindOverload:
		ann.Type = rest
		if idx := strings.IndexAny(rest, " \t("); ann.Kind != KindOverload && idx > 0 {
			ann.Name = rest[:idx]
		}
	case KindSee, KindSource, KindModule, KindMeta, KindAs:
		ann.Name = strings.TrimSpace(rest)
	case KindAsync, KindDeprecated, KindNodiscard, KindPackage, KindPrivate, KindProtected:
		ann.Description = strings.TrimSpace(rest)
	default:
		ann.Kind = KindOpaque
		ann.ParseErr = "unknown tag @" + tag
	}
	return ann
}

func parseParam(ann *Annotation, rest string) {
	name, tail := scanWord(rest)
	if name == "" {
		ann.ParseErr = "missing parameter name"
		return
	}
	if strings.HasSuffix(name, "?") {
		ann.Optional = true
		name = strings.TrimSuffix(name, "?")
	}
	ann.Name = name
	ann.Type, ann.Description = scanType(tail)
	if ann.Type == "" {
		ann.ParseErr = "missing parameter type"
	}
}

func parseReturn(ann *Annotation, rest string) {
	ann.Type, rest = scanType(rest)
	if ann.Type == "" {
		ann.ParseErr = "missing return type"
		return
	}
	if strings.HasSuffix(ann.Type, "?") {
		ann.Optional = true
	}
	name, tail := scanWord(rest)
	// a lone `#` introduces the description without naming the value
	if name == "#" {
		ann.Description = strings.TrimSpace(tail)
		return
	}
	ann.Name = name
	ann.Description = strings.TrimSpace(tail)
}

func parseClass(ann *Annotation, rest string) {
	if strings.HasPrefix(rest, "(exact)") {
		ann.Exact = true
		rest = strings.TrimLeft(rest[len("(exact)"):], " \t")
	}
	name := rest
	if idx := strings.Index(rest, ":"); idx >= 0 {
		name = strings.TrimSpace(rest[:idx])
		for _, parent := range strings.Split(rest[idx+1:], ",") {
			if parent = strings.TrimSpace(parent); parent != "" {
				ann.Parents = append(ann.Parents, parent)
			}
		}
	}
	ann.Name = strings.TrimSpace(name)
	if ann.Name == "" {
		ann.ParseErr = "missing class name"
	}
}

var fieldScopes = map[string]bool{"private": true, "protected": true, "public": true, "package": true}

func parseField(ann *Annotation, rest string) {
	word, tail := scanWord(rest)
	if fieldScopes[word] {
		ann.Scope = word
		word, tail = scanWord(tail)
	}
	if word == "" {
		ann.ParseErr = "missing field name"
		return
	}
	if strings.HasSuffix(word, "?") {
		ann.Optional = true
		word = strings.TrimSuffix(word, "?")
	}
	ann.Name = word
	ann.Type, ann.Description = scanType(tail)
	if ann.Type == "" {
		ann.ParseErr = "missing field type"
	}
}

func parseAlias(ann *Annotation, rest string) {
	ann.Name, rest = scanWord(rest)
	if ann.Name == "" {
		ann.ParseErr = "missing alias name"
		return
	}
	// inline form: ---@alias Name type
	ann.Type, ann.Description = scanType(rest)
}

func parseCast(ann *Annotation, rest string) {
	ann.Name, rest = scanWord(rest)
	if ann.Name == "" {
		ann.ParseErr = "missing cast variable"
		return
	}
	for _, part := range strings.Split(rest, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		entry := CastEntry{Type: part}
		if strings.HasPrefix(part, "+") {
			entry.Add = true
			entry.Type = part[1:]
		} else if strings.HasPrefix(part, "-") {
			entry.Remove = true
			entry.Type = part[1:]
		}
		ann.Casts = append(ann.Casts, entry)
	}
}

func parseEnum(ann *Annotation, rest string) {
	if strings.HasPrefix(rest, "(key)") {
		ann.KeyEnum = true
		rest = strings.TrimLeft(rest[len("(key)"):], " \t")
	}
	ann.Name, _ = scanWord(rest)
	if ann.Name == "" {
		ann.ParseErr = "missing enum name"
	}
}

func parseVersion(ann *Annotation, rest string) {
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, ">") || strings.HasPrefix(rest, "<") {
		ann.Comparison = rest[:1]
		rest = strings.TrimSpace(rest[1:])
	}
	ann.Name = rest
	if rest == "" {
		ann.ParseErr = "missing version"
		return
	}
	for _, v := range strings.Split(rest, ",") {
		v = strings.TrimSpace(v)
		v = strings.TrimPrefix(v, "JIT")
		if v == "" {
			continue
		}
		if !semver.IsValid("v" + v) {
			ann.ParseErr = "invalid version " + v
			return
		}
	}
}

func parseDiagnostic(ann *Annotation, rest string) {
	action := rest
	if idx := strings.Index(rest, ":"); idx >= 0 {
		action = rest[:idx]
		ann.Description = strings.TrimSpace(rest[idx+1:])
	}
	ann.Name = strings.TrimSpace(action)
	if ann.Name == "" {
		ann.ParseErr = "missing diagnostic action"
	}
}

// scanWord returns the first whitespace-delimited word and the trimmed tail.
func scanWord(s string) (string, string) {
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return "", ""
	}
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimLeft(s[idx:], " \t")
}

// scanType reads a type expression, respecting bracket/angle/paren nesting
// and quoted literals, so `table<string, number>` and `fun(a: string): any`
// survive as one expression. It returns the expression and the remaining
// description text.
func scanType(s string) (string, string) {
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return "", ""
	}
	depth := 0
	var quote byte
	i := 0
	for i < len(s) {
		ch := s[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			i++
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '(', '<', '[', '{':
			depth++
		case ')', '>', ']', '}':
			depth--
		case ' ', '\t':
			if depth <= 0 {
				// `fun(...): ret` and `string | number` continue across
				// a space after a connector, before or behind it
				prev := s[i-1]
				next := firstNonSpace(s[i:])
				if prev == ':' || prev == '|' || prev == ',' || next == '|' {
					for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
						i++
					}
					continue
				}
				return s[:i], strings.TrimLeft(s[i:], " \t")
			}
		}
		i++
	}
	return s, ""
}

func firstNonSpace(s string) byte {
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' {
			return s[i]
		}
	}
	return 0
}
