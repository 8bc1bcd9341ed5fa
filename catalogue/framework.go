package catalogue

import (
	"fmt"
	"sort"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// FrameworkDef describes the API surface of a host framework across its
// released versions. Definitions ship built in for the common Lua hosts and
// can be extended from YAML files in a project's frameworks/ directory.
type FrameworkDef struct {
	Name     string             `yaml:"name"`
	Versions []FrameworkVersion `yaml:"versions"`
}

// FrameworkVersion is one framework release: the Lua version it embeds and
// the symbols it exposes, mapped to the type each yields.
type FrameworkVersion struct {
	Version string            `yaml:"version"`
	Lua     string            `yaml:"lua"`
	Symbols map[string]string `yaml:"symbols"`
}

// LoadFrameworkDef parses a YAML framework definition.
func LoadFrameworkDef(data []byte) (*FrameworkDef, error) {
	var def FrameworkDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse framework definition: %w", err)
	}
	if def.Name == "" {
		return nil, fmt.Errorf("framework definition missing name")
	}
	return &def, nil
}

// Select returns the definition for the requested version, or the latest
// release when the version is empty or unknown.
func (d *FrameworkDef) Select(version string) *FrameworkVersion {
	for i := range d.Versions {
		if d.Versions[i].Version == version {
			return &d.Versions[i]
		}
	}
	return d.Latest()
}

// Latest returns the newest release by semantic version order.
func (d *FrameworkDef) Latest() *FrameworkVersion {
	if len(d.Versions) == 0 {
		return nil
	}
	idx := make([]int, len(d.Versions))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return semver.Compare("v"+d.Versions[idx[a]].Version, "v"+d.Versions[idx[b]].Version) < 0
	})
	return &d.Versions[idx[len(idx)-1]]
}

// Apply merges a framework release's symbols into the catalogue.
func (c *Catalogue) Apply(fv *FrameworkVersion) {
	if fv == nil {
		return
	}
	for symbol, typeExpr := range fv.Symbols {
		c.add(symbol, typeExpr)
	}
}

// Builtin returns the built-in definition for a framework name, or nil.
func Builtin(name string) *FrameworkDef {
	switch name {
	case "neovim":
		return neovimDef()
	case "wezterm":
		return weztermDef()
	case "love2d":
		return love2dDef()
	case "yazi":
		return yaziDef()
	}
	return nil
}

// BuiltinNames lists the frameworks with built-in definitions.
func BuiltinNames() []string {
	return []string{"love2d", "neovim", "wezterm", "yazi"}
}

func neovimDef() *FrameworkDef {
	api := map[string]string{
		"vim.api.nvim_buf_get_lines":  "table",
		"vim.api.nvim_buf_set_lines":  "nil",
		"vim.api.nvim_get_current_buf": "number",
		"vim.api.nvim_create_autocmd": "number",
		"vim.api.nvim_command":        "nil",
		"vim.fn.expand":               "string",
		"vim.fn.getline":              "string",
		"vim.keymap.set":              "nil",
		"vim.notify":                  "nil",
		"vim.inspect":                 "string",
		"vim.tbl_extend":              "table",
		"vim.tbl_deep_extend":         "table",
		"vim.split":                   "table",
		"vim.loop.now":                "number",
	}
	v11 := map[string]string{
		"vim.uv.now":     "number",
		"vim.iter":       "table",
		"vim.system":     "table",
		"vim.json.encode": "string",
		"vim.json.decode": "table",
	}
	merged := make(map[string]string, len(api)+len(v11))
	for k, v := range api {
		merged[k] = v
	}
	for k, v := range v11 {
		merged[k] = v
	}
	return &FrameworkDef{
		Name: "neovim",
		Versions: []FrameworkVersion{
			{Version: "0.9.0", Lua: "5.1", Symbols: api},
			{Version: "0.10.0", Lua: "5.1", Symbols: merged},
			{Version: "0.11.0", Lua: "5.1", Symbols: merged},
		},
	}
}

func weztermDef() *FrameworkDef {
	symbols := map[string]string{
		"wezterm.config_builder": "table",
		"wezterm.font":           "table",
		"wezterm.font_with_fallback": "table",
		"wezterm.action":         "table",
		"wezterm.log_info":       "nil",
		"wezterm.on":             "nil",
		"wezterm.home_dir":       "string",
		"wezterm.target_triple":  "string",
	}
	return &FrameworkDef{
		Name: "wezterm",
		Versions: []FrameworkVersion{
			{Version: "20230712.0.0", Lua: "5.4", Symbols: symbols},
			{Version: "20240203.0.0", Lua: "5.4", Symbols: symbols},
		},
	}
}

func love2dDef() *FrameworkDef {
	symbols := map[string]string{
		"love.graphics.print":        "nil",
		"love.graphics.rectangle":    "nil",
		"love.graphics.newImage":     "table",
		"love.graphics.getWidth":     "number",
		"love.graphics.getHeight":    "number",
		"love.timer.getDelta":        "number",
		"love.timer.getTime":         "number",
		"love.keyboard.isDown":       "boolean",
		"love.audio.newSource":       "table",
		"love.filesystem.read":       "string",
	}
	return &FrameworkDef{
		Name: "love2d",
		Versions: []FrameworkVersion{
			{Version: "11.4.0", Lua: "5.3", Symbols: symbols},
			{Version: "11.5.0", Lua: "5.3", Symbols: symbols},
		},
	}
}

func yaziDef() *FrameworkDef {
	symbols := map[string]string{
		"ya.manager":           "table",
		"ya.manager.cd":        "nil",
		"ya.manager.select":    "nil",
		"ya.manager.select_by": "nil",
		"ya.manager.paste":     "nil",
		"ya.preview.archive":   "table",
		"ya.input.bind":        "nil",
		"ya.input.send":        "nil",
		"ya.notify":            "nil",
	}
	return &FrameworkDef{
		Name: "yazi",
		Versions: []FrameworkVersion{
			{Version: "0.1.5", Lua: "5.4", Symbols: symbols},
		},
	}
}
