package catalogue

import (
	"path"
	"strings"
)

// DetectVersion determines the project's Lua version from a path-to-content
// view of its files. Configuration files are trusted over framework layout
// markers, which are trusted over a syntax scan; the scan defaults to 5.1
// when nothing newer appears.
func DetectVersion(files map[string]string) Version {
	if v, ok := versionFromLuarc(files); ok {
		return v
	}
	if content, ok := files[".lua-version"]; ok {
		if v, ok := ParseVersion(strings.TrimSpace(content)); ok {
			return v
		}
	}
	if v, ok := versionFromLuacheckrc(files); ok {
		return v
	}
	if v, ok := versionFromRockspec(files); ok {
		return v
	}
	if v, ok := versionFromLayout(files); ok {
		return v
	}
	return versionFromSyntax(files)
}

func versionFromLuarc(files map[string]string) (Version, bool) {
	content, ok := files[".luarc.json"]
	if !ok {
		return "", false
	}
	for _, v := range []Version{Lua51, Lua52, Lua53, Lua54} {
		if strings.Contains(content, `"`+string(v)+`"`) ||
			strings.Contains(content, `"Lua `+string(v)+`"`) {
			return v, true
		}
	}
	// LuaJIT tracks 5.1 with a few 5.2 additions
	if strings.Contains(content, "LuaJIT") || strings.Contains(content, "luajit") {
		return Lua51, true
	}
	return "", false
}

func versionFromLuacheckrc(files map[string]string) (Version, bool) {
	content, ok := files[".luacheckrc"]
	if !ok || !strings.Contains(content, "std") {
		return "", false
	}
	for short, v := range map[string]Version{
		"lua51": Lua51, "lua52": Lua52, "lua53": Lua53, "lua54": Lua54,
	} {
		if strings.Contains(content, `"`+short+`"`) || strings.Contains(content, `'`+short+`'`) {
			return v, true
		}
	}
	return "", false
}

func versionFromRockspec(files map[string]string) (Version, bool) {
	for name, content := range files {
		if !strings.HasSuffix(name, ".rockspec") {
			continue
		}
		for _, v := range []Version{Lua51, Lua52, Lua53, Lua54} {
			if strings.Contains(content, "lua ~> "+string(v)) ||
				strings.Contains(content, `lua >= `+string(v)) {
				return v, true
			}
		}
	}
	return "", false
}

// versionFromLayout recognizes framework project structures with a known
// embedded Lua version.
func versionFromLayout(files map[string]string) (Version, bool) {
	if _, ok := files["wezterm.lua"]; ok {
		return Lua54, true
	}
	if _, ok := files[".wezterm.lua"]; ok {
		return Lua54, true
	}
	if _, ok := files["yazi/init.lua"]; ok {
		return Lua54, true
	}
	if hasDir(files, "lua") && (hasDir(files, "plugin") || hasDir(files, "ftplugin") || hasDir(files, "after")) {
		// Neovim plugin; its embedded LuaJIT is 5.1 compatible
		return Lua51, true
	}
	_, hasConf := files["conf.lua"]
	if _, hasMain := files["main.lua"]; hasMain && hasConf {
		// Every supported LÖVE release targets 5.3.
		return Lua53, true
	}
	return "", false
}

// versionFromSyntax scans source files for version-gated syntax.
func versionFromSyntax(files map[string]string) Version {
	version := Lua51
	bump := func(v Version) {
		if v.AtLeast(version) {
			version = v
		}
	}
	for name, content := range files {
		if path.Ext(name) != ".lua" {
			continue
		}
		if strings.Contains(content, "<close>") {
			bump(Lua54)
		}
		if strings.Contains(content, " // ") {
			bump(Lua53)
		}
		if strings.Contains(content, "goto ") || strings.Contains(content, "::") ||
			strings.Contains(content, " << ") || strings.Contains(content, " >> ") {
			bump(Lua52)
		}
	}
	return version
}

// DetectFrameworks reports which built-in framework surfaces the project
// layout suggests.
func DetectFrameworks(files map[string]string) []string {
	var out []string
	if hasDir(files, "lua") && (hasDir(files, "plugin") || hasDir(files, "ftplugin") || hasDir(files, "after")) {
		out = append(out, "neovim")
	}
	if _, ok := files["wezterm.lua"]; ok {
		out = append(out, "wezterm")
	} else if _, ok := files[".wezterm.lua"]; ok {
		out = append(out, "wezterm")
	}
	_, hasMain := files["main.lua"]
	_, hasConf := files["conf.lua"]
	if hasMain && hasConf {
		out = append(out, "love2d")
	}
	if _, ok := files["yazi/init.lua"]; ok {
		out = append(out, "yazi")
	}
	return out
}

func hasDir(files map[string]string, dir string) bool {
	prefix := dir + "/"
	for name := range files {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
