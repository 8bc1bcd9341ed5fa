// Package project aggregates per-file parse results into a cross-file view
// and drives repeated inference passes over it until the results stop
// changing. The context maps each file path to its module and answers
// require-name lookups during a pass.
package project

import (
	"sort"
	"strings"

	"github.com/ChrisGVE/lua-tools/inference"
	"github.com/ChrisGVE/lua-tools/parser"
)

// Context is the aggregated, cross-file view of a project. It is built once
// after all files parse, is read-only during an inference pass, and has its
// result snapshot swapped by the driver between passes.
type Context struct {
	files map[string]*parser.File
	order []string
	// index maps require names to file paths, e.g. "lib.util" and "util"
	// both point at "lib/util.lua".
	index map[string]string
	// errors records per-file pipeline failures; they scope to the file
	// and never abort the rest of the batch.
	errors map[string]error

	// results holds the latest completed pass; snapshot holds the pass
	// before it, which is what resolution reads during a running pass.
	results  map[string]*inference.FileResult
	snapshot map[string]*inference.FileResult
}

func newContext() *Context {
	return &Context{
		files:   make(map[string]*parser.File),
		index:   make(map[string]string),
		errors:  make(map[string]error),
		results: make(map[string]*inference.FileResult),
	}
}

func (c *Context) addFile(file *parser.File) {
	if _, ok := c.files[file.Path]; !ok {
		c.order = append(c.order, file.Path)
	}
	c.files[file.Path] = file
}

// buildIndex registers require names once all files are in. Paths are
// visited in sorted order and the first registration of a name wins, so a
// bare-segment collision resolves the same way on every run regardless of
// which goroutine finished parsing first.
func (c *Context) buildIndex() {
	c.index = make(map[string]string, len(c.files))
	paths := make([]string, 0, len(c.files))
	for path := range c.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		for _, name := range requireNames(path) {
			if _, ok := c.index[name]; !ok {
				c.index[name] = path
			}
		}
	}
}

func (c *Context) addError(path string, err error) {
	c.errors[path] = err
	if _, ok := c.files[path]; !ok {
		c.order = append(c.order, path)
	}
}

// requireNames lists the require spellings that resolve to a file path:
// the dotted full path and, when distinct, the bare final segment. An
// init.lua file is addressed by its directory.
func requireNames(path string) []string {
	name := strings.TrimSuffix(path, ".lua")
	name = strings.TrimPrefix(name, "./")
	if strings.HasSuffix(name, "/init") {
		name = strings.TrimSuffix(name, "/init")
	}
	dotted := strings.ReplaceAll(name, "/", ".")
	names := []string{dotted}
	if idx := strings.LastIndex(dotted, "."); idx >= 0 {
		names = append(names, dotted[idx+1:])
	}
	return names
}

// File returns the parse result for a path, or nil.
func (c *Context) File(path string) *parser.File { return c.files[path] }

// Files returns all file paths in deterministic order.
func (c *Context) Files() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	sort.Strings(out)
	return out
}

// Result returns the final inference result for a path, or nil.
func (c *Context) Result(path string) *inference.FileResult {
	return c.results[path]
}

// Err returns the file-scoped error for a path, or nil.
func (c *Context) Err(path string) error { return c.errors[path] }

// ResolveModule resolves a require name to its file path.
func (c *Context) ResolveModule(name string) (string, bool) {
	path, ok := c.index[name]
	return path, ok
}

// ResolveCall implements inference.Resolver: given a call written as
// `alias.member(...)` in fromPath, it follows the file's require aliases to
// the target module and returns the member's return slots from the snapshot
// of the previous pass.
func (c *Context) ResolveCall(fromPath, callee string) ([]inference.Slot, bool) {
	from := c.files[fromPath]
	if from == nil || c.snapshot == nil {
		return nil, false
	}
	alias, member, ok := strings.Cut(callee, ".")
	if !ok {
		return nil, false
	}
	for _, req := range from.Requires {
		if req.Alias != alias {
			continue
		}
		path, ok := c.index[req.Name]
		if !ok {
			return nil, false
		}
		target := c.snapshot[path]
		if target == nil {
			return nil, false
		}
		result, ok := target.Exports[member]
		if !ok {
			return nil, false
		}
		if result.NoReturn {
			return nil, true
		}
		return result.Returns, true
	}
	return nil, false
}
