package edit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisGVE/lua-tools/inference"
	"github.com/ChrisGVE/lua-tools/merge"
	"github.com/ChrisGVE/lua-tools/parser"
)

func annotate(t *testing.T, source string) string {
	t.Helper()
	file, err := parser.ParseSource("test.lua", source)
	require.NoError(t, err)
	results := inference.New(nil, nil).InferFile(file)
	edits := ForFile(file, merge.File(file, results))
	out, err := Apply(source, edits)
	require.NoError(t, err)
	return out
}

func TestApply(t *testing.T) {
	testCases := []struct {
		description string
		source      string
		edits       []Edit
		expect      string
		expectErr   bool
	}{
		{
			description: "replace range",
			source:      "hello world",
			edits:       []Edit{{Start: 6, End: 11, Text: "there"}},
			expect:      "hello there",
		},
		{
			description: "insert at point",
			source:      "ab",
			edits:       []Edit{{Start: 1, End: 1, Text: "-"}},
			expect:      "a-b",
		},
		{
			description: "edits applied in offset order",
			source:      "one two three",
			edits: []Edit{
				{Start: 8, End: 13, Text: "3"},
				{Start: 0, End: 3, Text: "1"},
			},
			expect: "1 two 3",
		},
		{
			description: "overlap rejected",
			source:      "abcdef",
			edits: []Edit{
				{Start: 0, End: 4, Text: "x"},
				{Start: 2, End: 6, Text: "y"},
			},
			expectErr: true,
		},
		{
			description: "out of bounds rejected",
			source:      "ab",
			edits:       []Edit{{Start: 0, End: 5, Text: "x"}},
			expectErr:   true,
		},
	}
	for _, tc := range testCases {
		out, err := Apply(tc.source, tc.edits)
		if tc.expectErr {
			assert.Error(t, err, tc.description)
			continue
		}
		require.NoError(t, err, tc.description)
		assert.Equal(t, tc.expect, out, tc.description)
	}
}

func TestForFile_InsertsAboveUndocumentedFunction(t *testing.T) {
	out := annotate(t, `local function add(a, b)
	return a + b
end
`)
	assert.Equal(t, `--- TODO: Describe the function
---@param a number
---@param b number
---@return number
local function add(a, b)
	return a + b
end
`, out)
}

func TestForFile_PreservesIndentation(t *testing.T) {
	out := annotate(t, `local M = {}

	function M.twice(n)
		return n * 2
	end

return M
`)
	assert.Contains(t, out, "\t--- TODO: Describe the function\n\t---@param n number\n\t---@return number\n\tfunction M.twice(n)")
}

func TestForFile_ReplacesExistingBlockInPlace(t *testing.T) {
	out := annotate(t, `--- Make a label.
---@return number
local function label()
	return "label"
end
`)
	assert.Equal(t, `--- Make a label.
---@return string
--[[ ---@return number ]]
local function label()
	return "label"
end
`, out)
}

func TestPipeline_Idempotent(t *testing.T) {
	source := `local M = {}

--- Greet someone.
---@param name string
function M.greet(name)
	return "hello " .. name
end

function M.retries()
	return 3
end

return M
`
	once := annotate(t, source)
	twice := annotate(t, once)
	assert.Equal(t, once, twice)
}

func TestPipeline_RoundTripWhenFullyAnnotated(t *testing.T) {
	source := `--- Double a number.
---@param n number
---@return number
local function twice(n)
	return n * 2
end
`
	assert.Equal(t, source, annotate(t, source))
}
