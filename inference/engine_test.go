package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisGVE/lua-tools/parser"
)

type stubCatalogue map[string]TypeFact

func (c stubCatalogue) Lookup(symbol string) (TypeFact, bool) {
	fact, ok := c[symbol]
	return fact, ok
}

type stubResolver map[string][]Slot

func (r stubResolver) ResolveCall(fromPath, callee string) ([]Slot, bool) {
	slots, ok := r[callee]
	return slots, ok
}

func mustParse(t *testing.T, source string) *parser.File {
	t.Helper()
	file, err := parser.ParseSource("test.lua", source)
	require.NoError(t, err)
	return file
}

func funcResult(t *testing.T, fr *FileResult, name string) *Result {
	t.Helper()
	for decl, r := range fr.Decls {
		if decl.DeclName() == name {
			return r
		}
	}
	t.Fatalf("no result for %q", name)
	return nil
}

func TestJoin(t *testing.T) {
	testCases := []struct {
		description string
		a, b        Certainty
		expect      Certainty
	}{
		{description: "both certain stay certain", a: Certain, b: Certain, expect: Certain},
		{description: "both unknown stay unknown", a: Unknown, b: Unknown, expect: Unknown},
		{description: "unknown with certain degrades", a: Unknown, b: Certain, expect: Uncertain},
		{description: "uncertain dominates certain", a: Uncertain, b: Certain, expect: Uncertain},
		{description: "uncertain dominates unknown", a: Uncertain, b: Unknown, expect: Uncertain},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expect, Join(tc.a, tc.b), tc.description)
		assert.Equal(t, tc.expect, Join(tc.b, tc.a), tc.description+" (symmetric)")
	}
}

func TestSlotFact(t *testing.T) {
	var s Slot
	assert.Equal(t, UnknownFact(), s.Fact())

	s.Add("number", VariantCertain)
	fact := s.Fact()
	assert.Equal(t, "number", fact.Type)
	assert.Equal(t, Certain, fact.Certainty)

	s.Add("string", VariantLikely)
	fact = s.Fact()
	assert.Equal(t, "number|string", fact.Type)
	assert.Equal(t, Uncertain, fact.Certainty)
	assert.False(t, s.Ambiguous())

	s.Add("string", VariantCertain)
	assert.True(t, s.Ambiguous())
}

func TestInferFile_LiteralReturns(t *testing.T) {
	file := mustParse(t, `
local function answer()
	return 42
end
`)
	fr := New(nil, nil).InferFile(file)
	r := funcResult(t, fr, "answer")
	require.Len(t, r.Returns, 1)
	fact := r.Returns[0].Fact()
	assert.Equal(t, "number", fact.Type)
	assert.Equal(t, Certain, fact.Certainty)
	assert.False(t, r.NoReturn)
	assert.Equal(t, "function", r.Binding.Fact().Type)
}

func TestInferFile_ArithmeticLeansParams(t *testing.T) {
	file := mustParse(t, `
local function add(a, b)
	return a + b
end
`)
	fr := New(nil, nil).InferFile(file)
	r := funcResult(t, fr, "add")
	require.Len(t, r.Params, 2)
	for i := range r.Params {
		fact := r.Params[i].Fact()
		assert.Equal(t, "number", fact.Type)
		assert.Equal(t, Uncertain, fact.Certainty)
	}
	require.Len(t, r.Returns, 1)
	ret := r.Returns[0].Fact()
	assert.Equal(t, "number", ret.Type)
	assert.Equal(t, Uncertain, ret.Certainty)
}

func TestInferFile_ConcatLeansString(t *testing.T) {
	file := mustParse(t, `
local function greet(name)
	return "hello " .. name
end
`)
	fr := New(nil, nil).InferFile(file)
	r := funcResult(t, fr, "greet")
	require.Len(t, r.Params, 1)
	assert.Equal(t, "string", r.Params[0].Fact().Type)
	require.Len(t, r.Returns, 1)
	assert.Equal(t, "string", r.Returns[0].Fact().Type)
}

func TestInferFile_NoReturnRecorded(t *testing.T) {
	file := mustParse(t, `
local function log(msg)
	print(msg)
end
`)
	fr := New(nil, nil).InferFile(file)
	r := funcResult(t, fr, "log")
	assert.True(t, r.NoReturn)
	assert.Empty(t, r.Returns)
}

func TestInferFile_BareReturnIsNoValue(t *testing.T) {
	file := mustParse(t, `
local function bail(ok)
	if ok then
		return
	end
end
`)
	fr := New(nil, nil).InferFile(file)
	r := funcResult(t, fr, "bail")
	assert.True(t, r.NoReturn)
}

func TestInferFile_AnnotationSeedsUncertain(t *testing.T) {
	file := mustParse(t, `
---@param path string
---@return boolean
local function exists(path)
	return check(path)
end
`)
	fr := New(nil, nil).InferFile(file)
	r := funcResult(t, fr, "exists")
	require.Len(t, r.Params, 1)
	fact := r.Params[0].Fact()
	assert.Equal(t, "string", fact.Type)
	assert.Equal(t, Uncertain, fact.Certainty)
	require.Len(t, r.Returns, 1)
	ret := r.Returns[0].Fact()
	assert.Equal(t, "boolean", ret.Type)
	assert.Equal(t, Uncertain, ret.Certainty)
}

func TestInferFile_BranchesAccumulateVariants(t *testing.T) {
	file := mustParse(t, `
local function pick(flag)
	if flag then
		return 1
	else
		return "one"
	end
end
`)
	fr := New(nil, nil).InferFile(file)
	r := funcResult(t, fr, "pick")
	require.Len(t, r.Returns, 1)
	require.Len(t, r.Returns[0].Variants, 2)
	fact := r.Returns[0].Fact()
	assert.Equal(t, "number|string", fact.Type)
	assert.Equal(t, Certain, fact.Certainty)
	assert.True(t, r.Returns[0].Ambiguous())
}

func TestInferFile_CataloguePrecedesLocal(t *testing.T) {
	catalogue := stubCatalogue{
		"string.rep": {Type: "string", Certainty: Certain},
	}
	file := mustParse(t, `
local function pad(s)
	return string.rep(s, 2)
end
`)
	fr := New(catalogue, nil).InferFile(file)
	r := funcResult(t, fr, "pad")
	require.Len(t, r.Returns, 1)
	fact := r.Returns[0].Fact()
	assert.Equal(t, "string", fact.Type)
	// The argument is an untyped parameter, so the call site degrades.
	assert.Equal(t, Uncertain, fact.Certainty)
}

func TestInferFile_LocalCallPropagation(t *testing.T) {
	file := mustParse(t, `
local function base()
	return "prefix"
end

local function wrapped()
	return base()
end
`)
	fr := New(nil, nil).InferFile(file)
	r := funcResult(t, fr, "wrapped")
	require.Len(t, r.Returns, 1)
	fact := r.Returns[0].Fact()
	assert.Equal(t, "string", fact.Type)
	assert.Equal(t, Certain, fact.Certainty)
}

func TestInferFile_ResolverForCrossFileCalls(t *testing.T) {
	var slot Slot
	slot.Add("table", VariantCertain)
	resolver := stubResolver{
		"util.split": {slot},
	}
	file := mustParse(t, `
local util = require("myproj.util")

local function fields()
	return util.split("a,b", ",")
end
`)
	fr := New(nil, resolver).InferFile(file)
	r := funcResult(t, fr, "fields")
	require.Len(t, r.Returns, 1)
	fact := r.Returns[0].Fact()
	assert.Equal(t, "table", fact.Type)
	assert.Equal(t, Certain, fact.Certainty)
}

func TestInferFile_LocalBindingFact(t *testing.T) {
	file := mustParse(t, `
local retries = 3
local label = "job"
`)
	fr := New(nil, nil).InferFile(file)
	r := funcResult(t, fr, "retries")
	assert.Equal(t, "number", r.Binding.Fact().Type)
	assert.Equal(t, Certain, r.Binding.Fact().Certainty)
	r = funcResult(t, fr, "label")
	assert.Equal(t, "string", r.Binding.Fact().Type)
}

func TestInferFile_TypeAnnotationSeedsBinding(t *testing.T) {
	file := mustParse(t, `
---@type table<string, number>
local counts = load_counts()
`)
	fr := New(nil, nil).InferFile(file)
	r := funcResult(t, fr, "counts")
	fact := r.Binding.Fact()
	assert.Equal(t, "table<string, number>", fact.Type)
	assert.Equal(t, Uncertain, fact.Certainty)
}

func TestInferFile_ModuleExports(t *testing.T) {
	file := mustParse(t, `
local M = {}

function M.trim(s)
	return (s:gsub("^%s+", ""))
end

function M.twice(n)
	return n * 2
end

return M
`)
	fr := New(nil, nil).InferFile(file)
	require.NotNil(t, file.Module)
	assert.Contains(t, fr.Exports, "trim")
	assert.Contains(t, fr.Exports, "twice")
	twice := fr.Exports["twice"]
	require.Len(t, twice.Returns, 1)
	assert.Equal(t, "number", twice.Returns[0].Fact().Type)
}

func TestFileResult_SignatureStableAcrossPasses(t *testing.T) {
	file := mustParse(t, `
local function id(x)
	return x
end
`)
	engine := New(nil, nil)
	first := engine.InferFile(file)
	second := engine.InferFile(file)
	assert.Equal(t, first.Signature(), second.Signature())
	assert.False(t, second.Regressed(first))
}

func TestResult_Regressed(t *testing.T) {
	prev := &Result{Returns: []Slot{{}}}
	prev.Returns[0].Add("string", VariantCertain)
	next := &Result{Returns: []Slot{{}}}
	next.Returns[0].Add("string", VariantLikely)
	assert.True(t, next.Regressed(prev))
	assert.False(t, prev.Regressed(next))
}
