package merge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisGVE/lua-tools/inference"
	"github.com/ChrisGVE/lua-tools/parser"
)

func mergeSource(t *testing.T, source string) []*Merged {
	t.Helper()
	file, err := parser.ParseSource("test.lua", source)
	require.NoError(t, err)
	results := inference.New(nil, nil).InferFile(file)
	return File(file, results)
}

func single(t *testing.T, source, declName string) *Merged {
	t.Helper()
	for _, m := range mergeSource(t, source) {
		if m.Decl.DeclName() == declName {
			return m
		}
	}
	t.Fatalf("no merge output for %q", declName)
	return nil
}

func TestMerge_AbsentAnnotationsEmitted(t *testing.T) {
	m := single(t, `
local function add(a, b)
	return a + b
end
`, "add")
	require.True(t, m.Changed)
	assert.Equal(t, []string{
		"--- TODO: Describe the function",
		"---@param a number",
		"---@param b number",
		"---@return number",
	}, m.Lines)
}

func TestMerge_UnknownSlotGetsPlaceholder(t *testing.T) {
	m := single(t, `
local function passthrough(x)
	return mystery(x)
end
`, "passthrough")
	assert.Contains(t, m.Lines, "---@param x any @TODO: Specify type and describe")
	assert.Contains(t, m.Lines, "---@return any @TODO: Specify type and describe")
}

func TestMerge_CorroboratedAnnotationKeptVerbatim(t *testing.T) {
	m := single(t, `
---@param x string
local function shout(x)
	return x .. "!"
end
`, "shout")
	assert.Contains(t, m.Lines, "---@param x string")
	assert.Empty(t, m.Advisories)
}

func TestMerge_CertainContradictionDemotesExisting(t *testing.T) {
	m := single(t, `
--- Render a label.
---@return number
local function label()
	return "label"
end
`, "label")
	require.True(t, m.Changed)
	live := -1
	demoted := -1
	for i, line := range m.Lines {
		if line == "---@return string" {
			live = i
		}
		if line == "--[[ ---@return number ]]" {
			demoted = i
		}
	}
	require.GreaterOrEqual(t, live, 0, "inferred annotation should be live")
	require.Equal(t, live+1, demoted, "existing annotation should be demoted alongside")
}

func TestMerge_UncertainContradictionKeepsExisting(t *testing.T) {
	m := single(t, `
--- Combine.
---@param a table
local function combine(a, b)
	return a + b
end
`, "combine")
	assert.Contains(t, m.Lines, "---@param a table")
	assert.NotContains(t, m.Lines, "---@param a number")
	require.NotEmpty(t, m.Advisories)
	assert.Contains(t, m.Advisories[0], "inference suggests number")
}

func TestMerge_OptionalityAdvisoryNamesRelation(t *testing.T) {
	m := single(t, `
--- Find a user.
---@return string
local function find(ok)
	if ok then
		return "name"
	else
		return nil
	end
end
`, "find")
	assert.Contains(t, m.Lines, "---@return string")
	require.NotEmpty(t, m.Advisories)
	assert.Contains(t, m.Advisories[0], "optionality")
	assert.Contains(t, m.Advisories[0], "string|nil")
}

func TestMerge_MissingParamAppendedAfterExisting(t *testing.T) {
	m := single(t, `
--- Scale a point.
---@param x number
local function scale(x, factor)
	return x * factor
end
`, "scale")
	xIdx, factorIdx := -1, -1
	for i, line := range m.Lines {
		if line == "---@param x number" {
			xIdx = i
		}
		if strings.HasPrefix(line, "---@param factor") {
			factorIdx = i
		}
	}
	require.GreaterOrEqual(t, xIdx, 0)
	require.Greater(t, factorIdx, xIdx, "appended entries follow existing ones")
}

func TestMerge_ParamNameDifferenceIsAdvisoryOnly(t *testing.T) {
	m := single(t, `
--- Wrap.
---@param value string
local function wrap(v)
	return "<" .. v .. ">"
end
`, "wrap")
	assert.Contains(t, m.Lines, "---@param value string")
	require.NotEmpty(t, m.Advisories)
	assert.Contains(t, m.Advisories[0], "'v' is annotated as 'value'")
}

func TestMerge_WiderExistingUnionKept(t *testing.T) {
	m := mergeSource(t, `
--- Identity-ish.
---@param x string|number
---@return string|number
local function echo(x)
	return "fixed"
end
`)
	// The return is a certain string, a subset of the annotated union, so
	// nothing contradicts and nothing changes.
	assert.Empty(t, m)
}

func TestMerge_NoReturnQuestionsAnnotatedReturn(t *testing.T) {
	m := single(t, `
--- Log a message.
---@return boolean
local function log(msg)
	print(msg)
end
`, "log")
	assert.Contains(t, m.Lines, "---@return boolean")
	require.NotEmpty(t, m.Advisories)
	assert.Contains(t, m.Advisories[0], "no return statement")
}

func TestMerge_PlainLocalsSkipped(t *testing.T) {
	out := mergeSource(t, `
local retries = 3
`)
	assert.Empty(t, out)
}

func TestMerge_ExportedBindingGetsType(t *testing.T) {
	m := single(t, `
local M = {}

M.version = "1.0.0"

return M
`, "M.version")
	assert.Contains(t, m.Lines, "---@type string")
}

func TestMerge_ComparisonsUseCodeEvidenceOnly(t *testing.T) {
	// The annotated types seed inference, so comparing against the full
	// fact would always agree with itself. Every slot comparison has to go
	// through the observed view or contradictions become invisible.
	out := mergeSource(t, `
local M = {}

---@type number
M.label = "title"

--- Dispatch an event.
---@param event table
---@return boolean
function M.dispatch(event)
	return handler(event)
end

return M
`)
	require.Len(t, out, 1)
	m := out[0]
	assert.Equal(t, "M.label", m.Decl.DeclName())
	assert.Contains(t, m.Lines, "---@type string")
	assert.Contains(t, m.Lines, "--[[ ---@type number ]]")
}

func TestMerge_Idempotent(t *testing.T) {
	first := single(t, `
local function add(a, b)
	return a + b
end
`, "add")
	require.True(t, first.Changed)

	annotated := strings.Join(first.Lines, "\n") + "\n" + `local function add(a, b)
	return a + b
end
`
	assert.Empty(t, mergeSource(t, annotated), "second run must produce no edits")
}

func TestMerge_AliasEntriesReEmittedVerbatim(t *testing.T) {
	m := single(t, `
--- Side of a trade.
---@alias Side
---| '"buy"' # open
---| '"sell"' # close
---@return number
local function side()
	return "buy"
end
`, "side")
	joined := strings.Join(m.Lines, "\n")
	assert.Contains(t, joined, "---@alias Side")
	assert.Contains(t, joined, `---| '"buy"' # open`)
	assert.Contains(t, joined, `---| '"sell"' # close`)
}
