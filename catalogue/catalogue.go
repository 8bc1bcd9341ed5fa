package catalogue

import "github.com/ChrisGVE/lua-tools/inference"

// Catalogue is a symbol table mapping fully qualified names to the type a
// call to (or read of) that symbol yields. All entries are Certain; the
// surface is taken as ground truth, never re-inferred.
type Catalogue struct {
	version Version
	symbols map[string]inference.TypeFact
}

// Lookup implements inference.Catalogue.
func (c *Catalogue) Lookup(symbol string) (inference.TypeFact, bool) {
	fact, ok := c.symbols[symbol]
	return fact, ok
}

// Version returns the Lua version the catalogue was built for.
func (c *Catalogue) Version() Version { return c.version }

// Has reports whether the symbol is part of the surface.
func (c *Catalogue) Has(symbol string) bool {
	_, ok := c.symbols[symbol]
	return ok
}

func (c *Catalogue) add(symbol, typeExpr string) {
	c.symbols[symbol] = inference.TypeFact{Type: typeExpr, Certainty: inference.Certain}
}

func (c *Catalogue) addAll(prefix string, entries map[string]string) {
	for name, typeExpr := range entries {
		c.add(prefix+name, typeExpr)
	}
}

// Standard builds the standard-library surface for one Lua version.
func Standard(v Version) *Catalogue {
	c := &Catalogue{version: v, symbols: make(map[string]inference.TypeFact)}

	c.addAll("", map[string]string{
		"assert":         "any",
		"collectgarbage": "any",
		"dofile":         "any",
		"error":          "any",
		"getmetatable":   "table",
		"ipairs":         "function",
		"load":           "function",
		"loadfile":       "function",
		"next":           "any",
		"pairs":          "function",
		"pcall":          "boolean",
		"print":          "nil",
		"rawequal":       "boolean",
		"rawget":         "any",
		"rawset":         "table",
		"require":        "any",
		"select":         "any",
		"setmetatable":   "table",
		"tonumber":       "number",
		"tostring":       "string",
		"type":           "string",
		"xpcall":         "boolean",
		"_G":             "table",
		"_VERSION":       "string",
	})
	if v == Lua51 {
		c.addAll("", map[string]string{
			"getfenv":    "table",
			"loadstring": "function",
			"module":     "any",
			"setfenv":    "boolean",
			"unpack":     "any",
		})
	}
	if v.AtLeast(Lua52) {
		c.add("rawlen", "number")
	}
	if v == Lua54 {
		c.add("warn", "nil")
	}

	c.addAll("string.", map[string]string{
		"byte":    "number",
		"char":    "string",
		"dump":    "string",
		"find":    "number",
		"format":  "string",
		"gmatch":  "function",
		"gsub":    "string",
		"len":     "number",
		"lower":   "string",
		"match":   "string",
		"rep":     "string",
		"reverse": "string",
		"sub":     "string",
		"upper":   "string",
	})

	c.addAll("table.", map[string]string{
		"concat": "string",
		"insert": "nil",
		"remove": "any",
		"sort":   "nil",
	})
	if v == Lua51 {
		c.add("table.maxn", "number")
	}
	if v.AtLeast(Lua52) {
		c.add("table.pack", "table")
		c.add("table.unpack", "any")
	}
	if v.AtLeast(Lua53) {
		c.add("table.move", "table")
	}

	c.addAll("math.", map[string]string{
		"abs": "number", "acos": "number", "asin": "number", "atan": "number",
		"ceil": "number", "cos": "number", "deg": "number", "exp": "number",
		"floor": "number", "fmod": "number", "log": "number", "max": "number",
		"min": "number", "modf": "number", "rad": "number", "random": "number",
		"randomseed": "nil", "sin": "number", "sqrt": "number", "tan": "number",
		"pi": "number", "huge": "number",
	})
	if v == Lua51 {
		c.add("math.pow", "number")
		c.add("math.log10", "number")
	}
	if v == Lua52 {
		c.add("math.atan2", "number")
	}
	if v.AtLeast(Lua53) {
		c.add("math.tointeger", "number")
		c.add("math.type", "string")
		c.add("math.ult", "boolean")
		c.add("math.maxinteger", "number")
		c.add("math.mininteger", "number")
	}

	if v.HasFeature("bit32") {
		c.addAll("bit32.", map[string]string{
			"arshift": "number", "band": "number", "bnot": "number",
			"bor": "number", "btest": "boolean", "bxor": "number",
			"extract": "number", "lrotate": "number", "lshift": "number",
			"replace": "number", "rrotate": "number", "rshift": "number",
		})
	}

	if v.HasFeature("utf8") {
		c.addAll("utf8.", map[string]string{
			"char":        "string",
			"codes":       "function",
			"codepoint":   "number",
			"len":         "number",
			"offset":      "number",
			"charpattern": "string",
		})
	}

	c.addAll("io.", map[string]string{
		"open": "file*", "close": "boolean", "read": "string",
		"write": "file*", "lines": "function",
	})
	c.addAll("os.", map[string]string{
		"time": "number", "clock": "number", "date": "string",
		"getenv": "string", "remove": "boolean", "rename": "boolean",
	})

	return c
}
