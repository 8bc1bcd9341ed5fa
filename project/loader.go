package project

import (
	"context"
	"io"
	"os"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
)

// markerFiles are the non-Lua files the version and framework detectors
// read. Everything else that is not a .lua source stays on disk.
var markerFiles = map[string]bool{
	".luarc.json":  true,
	".lua-version": true,
	".luacheckrc":  true,
}

// Loader reads a project tree into memory. Paths in the returned map are
// relative to the root and use forward slashes regardless of platform.
type Loader struct {
	fs afs.Service
}

func NewLoader() *Loader {
	return &Loader{fs: afs.New()}
}

// Load walks root and returns its Lua sources plus the marker files the
// detectors inspect, keyed by root-relative path.
func (l *Loader) Load(ctx context.Context, root string) (map[string]string, error) {
	sources := make(map[string]string)
	var visitor storage.OnVisit = func(ctx context.Context, baseURL, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
		if info.IsDir() {
			return true, nil
		}
		if !wanted(info.Name()) {
			return true, nil
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return false, err
		}
		rel := info.Name()
		if parent != "" {
			rel = path.Join(slashed(parent), info.Name())
		}
		sources[rel] = string(data)
		return true, nil
	}
	if err := l.fs.Walk(ctx, root, visitor); err != nil {
		return nil, err
	}
	return sources, nil
}

// LoadFile reads a single source file, for the one-shot CLI path.
func (l *Loader) LoadFile(ctx context.Context, location string) (string, error) {
	data, err := l.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Join resolves a path against a base location.
func (l *Loader) Join(base, name string) string {
	return url.Join(base, name)
}

func wanted(name string) bool {
	if strings.HasSuffix(name, ".lua") || strings.HasSuffix(name, ".rockspec") {
		return true
	}
	return markerFiles[name]
}

func slashed(parent string) string {
	return strings.ReplaceAll(parent, "\\", "/")
}
