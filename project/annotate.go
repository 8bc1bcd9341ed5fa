package project

import (
	"context"
	"fmt"

	"github.com/ChrisGVE/lua-tools/edit"
	"github.com/ChrisGVE/lua-tools/merge"
)

// Annotate runs the whole pipeline over a set of sources: parse, converge
// inference, merge annotations and apply the resulting edits. The returned
// map holds only the files whose text changed.
func (d *Driver) Annotate(ctx context.Context, sources map[string]string) (map[string]string, *Context, error) {
	pc, err := d.Run(ctx, sources)
	if err != nil {
		return nil, nil, err
	}
	out := make(map[string]string)
	for _, path := range pc.Files() {
		file := pc.files[path]
		result := pc.results[path]
		if file == nil || result == nil {
			continue
		}
		changed := merge.File(file, result)
		if len(changed) == 0 {
			continue
		}
		edits := edit.ForFile(file, changed)
		annotated, err := edit.Apply(file.Source, edits)
		if err != nil {
			return nil, nil, fmt.Errorf("apply edits to %s: %w", path, err)
		}
		out[path] = annotated
	}
	return out, pc, nil
}
