package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(tokens []Token) []Kind {
	var out []Kind
	for _, tok := range tokens {
		out = append(out, tok.Kind)
	}
	return out
}

func TestTokenize_CommentClassification(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind Kind
		text string
	}{
		{
			name: "plain comment",
			src:  "-- just a note",
			kind: KindComment,
			text: "-- just a note",
		},
		{
			name: "doc comment",
			src:  "--- Adds two numbers.",
			kind: KindCommentDoc,
			text: "--- Adds two numbers.",
		},
		{
			name: "annotation comment",
			src:  "---@param x string",
			kind: KindCommentAnnot,
			text: "---@param x string",
		},
		{
			name: "alias entry comment",
			src:  "---| 'left' # left side",
			kind: KindCommentAlias,
			text: "---| 'left' # left side",
		},
		{
			name: "four dashes is plain",
			src:  "---- separator ----",
			kind: KindComment,
			text: "---- separator ----",
		},
		{
			name: "block comment",
			src:  "--[[ multi\nline ]]",
			kind: KindCommentBlock,
			text: "--[[ multi\nline ]]",
		},
		{
			name: "fenced block comment skips inner brackets",
			src:  "--[==[ has ]] inside ]==]",
			kind: KindCommentBlock,
			text: "--[==[ has ]] inside ]==]",
		},
		{
			name: "negative type after marker keeps raw bytes",
			src:  "---@param x -number",
			kind: KindCommentAnnot,
			text: "---@param x -number",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tokens, err := Tokenize(tc.src)
			require.NoError(t, err)
			require.Len(t, tokens, 2)
			assert.Equal(t, tc.kind, tokens[0].Kind)
			assert.Equal(t, tc.text, tokens[0].Text)
			assert.Equal(t, KindEOF, tokens[1].Kind)
		})
	}
}

func TestTokenize_Code(t *testing.T) {
	tokens, err := Tokenize(`local M = {}`)
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindKeyword, KindIdent, KindOperator, KindPunct, KindPunct, KindEOF}, kinds(tokens))
	assert.Equal(t, "local", tokens[0].Text)
	assert.Equal(t, "M", tokens[1].Text)
	assert.Equal(t, 1, tokens[0].Line)
	assert.Equal(t, 7, tokens[1].Column)
}

func TestTokenize_Operators(t *testing.T) {
	tokens, err := Tokenize(`a .. b ... == ~= <= // << ::label::`)
	require.NoError(t, err)
	var ops []string
	for _, tok := range tokens {
		if tok.Kind == KindOperator {
			ops = append(ops, tok.Text)
		}
	}
	assert.Equal(t, []string{"..", "...", "==", "~=", "<=", "//", "<<", "::", "::"}, ops)
}

func TestTokenize_Strings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		text string
	}{
		{name: "double quoted", src: `"hello"`, text: `"hello"`},
		{name: "single quoted", src: `'hi'`, text: `'hi'`},
		{name: "escaped quote", src: `"a\"b"`, text: `"a\"b"`},
		{name: "long string", src: `[[raw ]= text]]`, text: `[[raw ]= text]]`},
		{name: "fenced long string", src: `[=[ with ]] ]=]`, text: `[=[ with ]] ]=]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tokens, err := Tokenize(tc.src)
			require.NoError(t, err)
			require.Equal(t, KindString, tokens[0].Kind)
			assert.Equal(t, tc.text, tokens[0].Text)
		})
	}
}

func TestTokenize_Numbers(t *testing.T) {
	tokens, err := Tokenize(`42 3.14 0xFF 1e-3`)
	require.NoError(t, err)
	var nums []string
	for _, tok := range tokens {
		if tok.Kind == KindNumber {
			nums = append(nums, tok.Text)
		}
	}
	assert.Equal(t, []string{"42", "3.14", "0xFF", "1e-3"}, nums)
}

func TestTokenize_LexErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "unterminated string", src: `local s = "oops`},
		{name: "string broken by newline", src: "local s = \"oops\nreturn s"},
		{name: "unterminated block comment", src: "--[[ never closed"},
		{name: "unterminated fenced comment", src: "--[==[ closed at wrong level ]]"},
		{name: "unterminated long string", src: "local s = [[ open"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Tokenize(tc.src)
			var lexErr *LexError
			require.ErrorAs(t, err, &lexErr)
		})
	}
}

func TestTokenize_SpansCoverComments(t *testing.T) {
	src := "-- a\nlocal x = 1 -- b\n"
	tokens, err := Tokenize(src)
	require.NoError(t, err)
	for _, tok := range tokens {
		if tok.Kind == KindEOF {
			continue
		}
		assert.Equal(t, tok.Text, src[tok.Offset:tok.End()])
	}
}
