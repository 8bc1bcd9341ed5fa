package project

import (
	"sort"

	"github.com/minio/highwayhash"

	"github.com/ChrisGVE/lua-tools/inference"
)

var fingerprintKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// fingerprint reduces a full pass result to a single value so convergence is
// a cheap comparison. Paths are folded in sorted order so map iteration
// order cannot perturb the value.
func fingerprint(results map[string]*inference.FileResult) (uint64, error) {
	hasher, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return 0, err
	}
	paths := make([]string, 0, len(results))
	for path := range results {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if _, err := hasher.Write([]byte(path)); err != nil {
			return 0, err
		}
		if _, err := hasher.Write([]byte{0}); err != nil {
			return 0, err
		}
		if _, err := hasher.Write([]byte(results[path].Signature())); err != nil {
			return 0, err
		}
		if _, err := hasher.Write([]byte{0}); err != nil {
			return 0, err
		}
	}
	return hasher.Sum64(), nil
}
