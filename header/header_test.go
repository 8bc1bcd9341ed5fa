package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisGVE/lua-tools/parser"
)

func extract(t *testing.T, source string) string {
	t.Helper()
	file, err := parser.ParseSource("test.lua", source)
	require.NoError(t, err)
	out, err := Extract(file)
	require.NoError(t, err)
	return out
}

func TestExtract_NoModule(t *testing.T) {
	file, err := parser.ParseSource("test.lua", `print("hi")`)
	require.NoError(t, err)
	_, err = Extract(file)
	assert.ErrorIs(t, err, ErrNoModule)
}

func TestExtract_StripsModulePrefix(t *testing.T) {
	out := extract(t, `
local M = {}

--- Greet someone.
---@param name string
---@return string
function M.greet(name)
	return "hello " .. name
end

function M:reset()
	self.count = 0
end

return M
`)
	assert.Contains(t, out, "---@module M\n")
	assert.Contains(t, out, "function greet(name) end")
	assert.Contains(t, out, "function reset() end")
	assert.NotContains(t, out, "M.greet")
	assert.NotContains(t, out, "M:reset")
	// Doc block travels with the signature, prefixes untouched.
	assert.Contains(t, out, "--- Greet someone.\n---@param name string\n---@return string\nfunction greet(name) end")
}

func TestExtract_OnlyExportedMembers(t *testing.T) {
	out := extract(t, `
local M = {}

local function internal()
	return 1
end

function M.public()
	return internal()
end

return M
`)
	assert.Contains(t, out, "function public() end")
	assert.NotContains(t, out, "internal")
}

func TestExtract_ValueMembersBecomeFields(t *testing.T) {
	out := extract(t, `
local M = {}

---@type string
M.version = "1.0.0"

M.limit = 10

return M
`)
	assert.Contains(t, out, "---@field version string\n")
	assert.Contains(t, out, "---@field limit any\n")
}

func TestExtract_MultiLineSignaturePreserved(t *testing.T) {
	out := extract(t, `
local M = {}

function M.configure(host,
                     port,
                     timeout)
	return true
end

return M
`)
	assert.Contains(t, out, "function configure(host,\n                     port,\n                     timeout) end")
}

func TestExtract_AnonymousFunctionMember(t *testing.T) {
	out := extract(t, `
local M = {}

M.run = function(job)
	return job
end

return M
`)
	assert.Contains(t, out, "function run(job) end")
}
