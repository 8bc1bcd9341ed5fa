package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisGVE/lua-tools/lexer"
)

func annotTokens(t *testing.T, src string) []lexer.Token {
	t.Helper()
	tokens, err := lexer.Tokenize(src)
	require.NoError(t, err)
	var out []lexer.Token
	for _, tok := range tokens {
		if tok.IsDocComment() {
			out = append(out, tok)
		}
	}
	return out
}

func parseOne(t *testing.T, line string) *Annotation {
	t.Helper()
	block := Parse(annotTokens(t, line))
	require.Len(t, block.Annotations, 1)
	return block.Annotations[0]
}

func TestParse_Param(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Annotation
	}{
		{
			name: "simple",
			line: "---@param x string",
			want: Annotation{Kind: KindParam, Name: "x", Type: "string"},
		},
		{
			name: "optional with description",
			line: "---@param count? integer how many items",
			want: Annotation{Kind: KindParam, Name: "count", Optional: true, Type: "integer", Description: "how many items"},
		},
		{
			name: "generic table type",
			line: "---@param map table<string, number> lookup",
			want: Annotation{Kind: KindParam, Name: "map", Type: "table<string, number>", Description: "lookup"},
		},
		{
			name: "function type with return",
			line: "---@param cb fun(err: string): boolean called on error",
			want: Annotation{Kind: KindParam, Name: "cb", Type: "fun(err: string): boolean", Description: "called on error"},
		},
		{
			name: "union with spaces",
			line: "---@param id string | number the identifier",
			want: Annotation{Kind: KindParam, Name: "id", Type: "string | number", Description: "the identifier"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := parseOne(t, tc.line)
			assert.Equal(t, tc.want.Kind, got.Kind)
			assert.Equal(t, tc.want.Name, got.Name)
			assert.Equal(t, tc.want.Optional, got.Optional)
			assert.Equal(t, tc.want.Type, got.Type)
			assert.Equal(t, tc.want.Description, got.Description)
			assert.Empty(t, got.ParseErr)
			assert.Equal(t, tc.line, got.Raw)
			assert.Equal(t, "---@param", got.Prefix)
		})
	}
}

func TestParse_Return(t *testing.T) {
	got := parseOne(t, "---@return number count the total")
	assert.Equal(t, KindReturn, got.Kind)
	assert.Equal(t, "number", got.Type)
	assert.Equal(t, "count", got.Name)
	assert.Equal(t, "the total", got.Description)
}

func TestParse_Class(t *testing.T) {
	got := parseOne(t, "---@class (exact) Point: Base, Serializable")
	assert.Equal(t, KindClass, got.Kind)
	assert.True(t, got.Exact)
	assert.Equal(t, "Point", got.Name)
	assert.Equal(t, []string{"Base", "Serializable"}, got.Parents)
}

func TestParse_Field(t *testing.T) {
	got := parseOne(t, "---@field private count? integer internal counter")
	assert.Equal(t, KindField, got.Kind)
	assert.Equal(t, "private", got.Scope)
	assert.Equal(t, "count", got.Name)
	assert.True(t, got.Optional)
	assert.Equal(t, "integer", got.Type)
	assert.Equal(t, "internal counter", got.Description)
}

func TestParse_AliasWithEntries(t *testing.T) {
	src := `---@alias Side
---| 'left' # the left side
---| 'right' # the right side
---| 'center'
`
	block := Parse(annotTokens(t, src))
	require.Len(t, block.Annotations, 1, "entries are absorbed, not independent annotations")
	alias := block.Annotations[0]
	assert.Equal(t, KindAlias, alias.Kind)
	assert.Equal(t, "Side", alias.Name)
	require.Len(t, alias.Entries, 3)
	assert.Equal(t, "left", alias.Entries[0].Value)
	assert.Equal(t, "the left side", alias.Entries[0].Description)
	assert.Equal(t, "center", alias.Entries[2].Value)
	assert.Equal(t, "---| 'left' # the left side", alias.Entries[0].Raw)
}

func TestParse_StrayAliasEntry(t *testing.T) {
	src := `---@param x string
---| 'oops'
`
	block := Parse(annotTokens(t, src))
	require.Len(t, block.Annotations, 2)
	assert.Equal(t, KindOpaque, block.Annotations[1].Kind)
	assert.Equal(t, "---| 'oops'", block.Annotations[1].Raw)
}

func TestParse_Cast(t *testing.T) {
	got := parseOne(t, "---@cast value +string, -nil")
	assert.Equal(t, KindCast, got.Kind)
	assert.Equal(t, "value", got.Name)
	require.Len(t, got.Casts, 2)
	assert.Equal(t, CastEntry{Type: "string", Add: true}, got.Casts[0])
	assert.Equal(t, CastEntry{Type: "nil", Remove: true}, got.Casts[1])
}

func TestParse_Version(t *testing.T) {
	got := parseOne(t, "---@version >5.2")
	assert.Equal(t, KindVersion, got.Kind)
	assert.Equal(t, ">", got.Comparison)
	assert.Equal(t, "5.2", got.Name)
	assert.Empty(t, got.ParseErr)

	bad := parseOne(t, "---@version banana")
	assert.NotEmpty(t, bad.ParseErr)
	assert.Equal(t, "---@version banana", bad.Raw)
}

func TestParse_Diagnostic(t *testing.T) {
	got := parseOne(t, "---@diagnostic disable-next-line: unused-local, undefined-global")
	assert.Equal(t, KindDiagnostic, got.Kind)
	assert.Equal(t, "disable-next-line", got.Name)
	assert.Equal(t, "unused-local, undefined-global", got.Description)
}

func TestParse_MarkerKinds(t *testing.T) {
	for _, line := range []string{"---@async", "---@deprecated", "---@nodiscard", "---@package", "---@private", "---@protected", "---@meta"} {
		got := parseOne(t, line)
		assert.NotEqual(t, KindOpaque, got.Kind, line)
		assert.Equal(t, line, got.Raw)
	}
}

func TestParse_UnknownTagKeptVerbatim(t *testing.T) {
	got := parseOne(t, "---@frobnicate all the things")
	assert.Equal(t, KindOpaque, got.Kind)
	assert.Equal(t, "---@frobnicate all the things", got.Raw)
	assert.NotEmpty(t, got.ParseErr)
}

func TestParse_MalformedParamRetained(t *testing.T) {
	got := parseOne(t, "---@param")
	assert.Equal(t, KindParam, got.Kind)
	assert.NotEmpty(t, got.ParseErr)
	assert.Equal(t, "---@param", got.Raw)
}

func TestParse_PrefixNeverPadded(t *testing.T) {
	got := parseOne(t, "---@param x -number")
	assert.Equal(t, "---@param x -number", got.Raw)
	assert.Equal(t, "-number", got.Type)
}
