// Package catalogue provides the pre-seeded, read-only type surfaces the
// inference engine consults before project-local resolution: the Lua
// standard library per language version, and host-framework APIs loaded
// from definition files.
package catalogue

// Version identifies a Lua language version.
type Version string

const (
	Lua51 Version = "5.1"
	Lua52 Version = "5.2"
	Lua53 Version = "5.3"
	Lua54 Version = "5.4"
)

// ParseVersion accepts both dotted and shorthand forms ("5.3", "53").
func ParseVersion(s string) (Version, bool) {
	switch s {
	case "5.1", "51":
		return Lua51, true
	case "5.2", "52":
		return Lua52, true
	case "5.3", "53":
		return Lua53, true
	case "5.4", "54":
		return Lua54, true
	}
	return "", false
}

// AtLeast reports whether v is min or newer. The dotted forms compare
// correctly as strings within the 5.x line.
func (v Version) AtLeast(min Version) bool {
	return string(v) >= string(min)
}

// HasFeature reports version-gated language and library features.
func (v Version) HasFeature(feature string) bool {
	switch feature {
	case "module", "setfenv", "getfenv", "unpack", "loadstring":
		return v == Lua51
	case "goto", "bit32":
		return v.AtLeast(Lua52)
	case "integer_division", "utf8":
		return v.AtLeast(Lua53)
	case "to_close":
		return v == Lua54
	}
	return false
}
