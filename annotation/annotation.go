// Package annotation models LSP doc-comment annotations (`---@param`,
// `---@class`, …) with their original textual prefix and source span, so a
// re-emitted line is byte-identical to its source.
package annotation

// Kind identifies the annotation tag.
type Kind string

const (
	KindAlias      Kind = "alias"
	KindAs         Kind = "as"
	KindAsync      Kind = "async"
	KindCast       Kind = "cast"
	KindClass      Kind = "class"
	KindDeprecated Kind = "deprecated"
	KindDiagnostic Kind = "diagnostic"
	KindEnum       Kind = "enum"
	KindField      Kind = "field"
	KindGeneric    Kind = "generic"
	KindMeta       Kind = "meta"
	KindModule     Kind = "module"
	KindNodiscard  Kind = "nodiscard"
	KindOperator   Kind = "operator"
	KindOverload   Kind = "overload"
	KindPackage    Kind = "package"
	KindParam      Kind = "param"
	KindPrivate    Kind = "private"
	KindProtected  Kind = "protected"
	KindReturn     Kind = "return"
	KindSee        Kind = "see"
	KindSource     Kind = "source"
	KindType       Kind = "type"
	KindVararg     Kind = "vararg"
	KindVersion    Kind = "version"

	// KindDoc is a free-text `---` line inside an annotation block.
	KindDoc Kind = "doc"
	// KindOpaque preserves an unknown or malformed tag verbatim.
	KindOpaque Kind = "opaque"
)

// AliasEntry is one `---| 'value' # description` line of an @alias.
type AliasEntry struct {
	Raw         string // original line, byte-for-byte
	Value       string
	Description string
	Line        int
	Offset      int
}

// CastEntry is one operation of an @cast: `+type` adds, `-type` removes, a
// bare type replaces.
type CastEntry struct {
	Type   string
	Add    bool
	Remove bool
}

// Annotation is one parsed annotation line. Raw always holds the original
// line byte-for-byte, and Prefix the verbatim marker up to and including the
// tag; emitting either never strips or reformats them.
type Annotation struct {
	Kind   Kind
	Prefix string // "---", "---@param", ...
	Raw    string
	Line   int
	Offset int

	Name        string // param/field/class/alias/enum/generic name, cast variable, reference
	Optional    bool   // `name?`
	Type        string // type expression text, verbatim
	Description string
	Parents     []string // @class inheritance list
	Exact       bool     // @class (exact)
	KeyEnum     bool     // @enum (key)
	Scope       string   // @field visibility scope
	Comparison  string   // @version comparison operator
	Entries     []AliasEntry
	Casts       []CastEntry

	// ParseErr is set when the tag body was malformed; the annotation is
	// retained verbatim (never dropped) and flagged for the merger.
	ParseErr string
}

// IsTyped reports whether the annotation carries a type expression the
// inference engine can seed from.
func (a *Annotation) IsTyped() bool {
	switch a.Kind {
	case KindParam, KindReturn, KindField, KindType, KindVararg:
		return a.Type != ""
	}
	return false
}

// Block is the ordered annotation sequence attached to one declaration.
type Block struct {
	Annotations []*Annotation
}

// Find returns the first annotation of the given kind, or nil.
func (b *Block) Find(kind Kind) *Annotation {
	for _, a := range b.Annotations {
		if a.Kind == kind {
			return a
		}
	}
	return nil
}

// Params returns the @param annotations in source order.
func (b *Block) Params() []*Annotation {
	return b.ofKind(KindParam)
}

// Returns returns the @return annotations in source order.
func (b *Block) Returns() []*Annotation {
	return b.ofKind(KindReturn)
}

func (b *Block) ofKind(kind Kind) []*Annotation {
	var out []*Annotation
	for _, a := range b.Annotations {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// Param returns the @param annotation for the named parameter, or nil.
func (b *Block) Param(name string) *Annotation {
	for _, a := range b.Annotations {
		if a.Kind == KindParam && a.Name == name {
			return a
		}
	}
	return nil
}
