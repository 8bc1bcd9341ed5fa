// Package main provides the lua-header binary entry point.
// It extracts interface headers from Lua modules: the exported functions
// with their doc comments and signatures, and the exported value fields.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/ChrisGVE/lua-tools/header"
	"github.com/ChrisGVE/lua-tools/parser"
	"github.com/ChrisGVE/lua-tools/project"
)

const appName = "lua-header"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   appName + " [flags] input...",
		Short: "Generates header files for Lua modules",
		Long: `lua-header writes a <name>.header.lua file next to every Lua module it
is given: the module's exported functions with their doc blocks and
signatures preserved verbatim, plus a @field line per exported value.
Files that do not return a module table are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args, recursive)
		},
		SilenceUsage: true,
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Recursively process files in directories")
	return cmd
}

func run(ctx context.Context, args []string, recursive bool) error {
	loader := project.NewLoader()
	paths, err := expand(ctx, loader, args, recursive)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no Lua sources matched")
	}
	for _, path := range paths {
		if err := process(ctx, loader, path); err != nil {
			fmt.Fprintf(os.Stderr, "Skipped %s: %v\n", path, err)
		}
	}
	return nil
}

func process(ctx context.Context, loader *project.Loader, path string) error {
	source, err := loader.LoadFile(ctx, path)
	if err != nil {
		return err
	}
	file, err := parser.ParseSource(path, source)
	if err != nil {
		return err
	}
	content, err := header.Extract(file)
	if err != nil {
		if errors.Is(err, header.ErrNoModule) {
			slog.Debug("no module table", "path", path)
		}
		return err
	}
	target := strings.TrimSuffix(path, ".lua") + ".header.lua"
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	fmt.Printf("Header file saved: %s\n", target)
	return nil
}

func expand(ctx context.Context, loader *project.Loader, args []string, recursive bool) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(path string) {
		if strings.HasSuffix(path, ".lua") && !strings.HasSuffix(path, ".header.lua") && !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}
	for _, arg := range args {
		if strings.ContainsAny(arg, "*?[{") {
			matches, err := doublestar.FilepathGlob(arg)
			if err != nil {
				return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
			}
			for _, match := range matches {
				add(match)
			}
			continue
		}
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if info.IsDir() {
			if !recursive {
				fmt.Fprintf(os.Stderr, "Skipping directory %s (use -r)\n", arg)
				continue
			}
			tree, err := loader.Load(ctx, arg)
			if err != nil {
				return nil, fmt.Errorf("walk %s: %w", arg, err)
			}
			for rel := range tree {
				add(filepath.ToSlash(filepath.Join(arg, rel)))
			}
			continue
		}
		add(arg)
	}
	sort.Strings(paths)
	return paths, nil
}
