// Package main provides the lua-commenter binary entry point.
// It annotates Lua sources with LSP doc comments derived from type
// inference, merging with whatever annotations the files already carry.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/ChrisGVE/lua-tools/catalogue"
	"github.com/ChrisGVE/lua-tools/project"
)

const appName = "lua-commenter"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	output     string
	overwrite  bool
	recursive  bool
	luaVersion string
	frameworks []string
	logLevel   string
}

func rootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   appName + " [flags] input...",
		Short: "Annotates Lua code with LSP doc comments",
		Long: `lua-commenter infers types for every function and module binding of the
given Lua sources and merges the inferred annotations with the doc
comments already present. Existing annotations are never destroyed: a
certain contradiction demotes the old line into a block comment next to
the corrected one, anything less certain becomes a TODO advisory.

Inputs may be files, glob patterns (** is supported) or, with -r,
directories. Directory inputs are analysed as one project so types
propagate across require boundaries.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(opts.logLevel)
			return run(cmd.Context(), args, opts)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "",
		"Output filename pattern or directory. `{}` stands for the input filename without extension, e.g. `out_{}.lua`")
	cmd.Flags().BoolVarP(&opts.overwrite, "overwrite", "w", false, "Overwrite input file(s)")
	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", false, "Recursively process files in directories")
	cmd.Flags().StringVar(&opts.luaVersion, "lua", "", "Force the Lua version (5.1, 5.2, 5.3, 5.4) instead of detecting it")
	cmd.Flags().StringArrayVar(&opts.frameworks, "framework", nil,
		"Framework catalogue to apply: a builtin name ("+strings.Join(catalogue.BuiltinNames(), ", ")+") or a YAML definition file; repeatable")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	return cmd
}

func run(ctx context.Context, args []string, opts options) error {
	loader := project.NewLoader()
	sources, markers, err := gather(ctx, loader, args, opts.recursive)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no Lua sources matched")
	}

	cat, err := buildCatalogue(markers, opts)
	if err != nil {
		return err
	}
	slog.Info("analysing project", "files", len(sources), "lua", string(cat.Version()))

	driver := project.NewDriver(cat, project.WithLogger(slog.Default()))
	annotated, pc, err := driver.Annotate(ctx, sources)
	if err != nil {
		return err
	}
	for _, path := range pc.Files() {
		if err := pc.Err(path); err != nil {
			fmt.Fprintf(os.Stderr, "Skipped %s: %v\n", path, err)
		}
	}

	for _, path := range sortedKeys(annotated) {
		target := outputPath(path, opts.output, opts.overwrite)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create output directory for %s: %w", target, err)
		}
		if err := os.WriteFile(target, []byte(annotated[path]), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		fmt.Printf("Annotated file saved: %s\n", target)
	}
	if len(annotated) == 0 {
		fmt.Println("All files already up to date")
	}
	return nil
}

// gather expands the input arguments into a path to source map. Globs use
// doublestar so `**` crosses directories; directories are walked only with
// the recursive flag, matching the original tool. The second map is the
// detection view: the same contents keyed root-relative, which is what the
// version and framework detectors expect for marker files and layout checks.
func gather(ctx context.Context, loader *project.Loader, args []string, recursive bool) (map[string]string, map[string]string, error) {
	sources := make(map[string]string)
	markers := make(map[string]string)
	addFile := func(path string) error {
		content, err := loader.LoadFile(ctx, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		sources[filepath.ToSlash(path)] = content
		markers[filepath.Base(path)] = content
		return nil
	}
	for _, arg := range args {
		if strings.ContainsAny(arg, "*?[{") {
			matches, err := doublestar.FilepathGlob(arg)
			if err != nil {
				return nil, nil, fmt.Errorf("bad pattern %q: %w", arg, err)
			}
			for _, match := range matches {
				if strings.HasSuffix(match, ".lua") {
					if err := addFile(match); err != nil {
						return nil, nil, err
					}
				}
			}
			continue
		}
		info, err := os.Stat(arg)
		if err != nil {
			return nil, nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if info.IsDir() {
			if !recursive {
				fmt.Fprintf(os.Stderr, "Skipping directory %s (use -r)\n", arg)
				continue
			}
			tree, err := loader.Load(ctx, arg)
			if err != nil {
				return nil, nil, fmt.Errorf("walk %s: %w", arg, err)
			}
			for rel, content := range tree {
				sources[filepath.ToSlash(filepath.Join(arg, rel))] = content
				markers[rel] = content
			}
			continue
		}
		if err := addFile(arg); err != nil {
			return nil, nil, err
		}
	}
	return sources, markers, nil
}

func buildCatalogue(sources map[string]string, opts options) (*catalogue.Catalogue, error) {
	version := catalogue.DetectVersion(sources)
	if opts.luaVersion != "" {
		forced, ok := catalogue.ParseVersion(opts.luaVersion)
		if !ok {
			return nil, fmt.Errorf("unknown Lua version %q", opts.luaVersion)
		}
		version = forced
	}
	cat := catalogue.Standard(version)

	names := opts.frameworks
	if len(names) == 0 {
		names = catalogue.DetectFrameworks(sources)
	}
	for _, name := range names {
		def, err := frameworkDef(name)
		if err != nil {
			return nil, err
		}
		cat.Apply(def.Latest())
	}
	return cat, nil
}

func frameworkDef(name string) (*catalogue.FrameworkDef, error) {
	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read framework definition %s: %w", name, err)
		}
		return catalogue.LoadFrameworkDef(data)
	}
	if def := catalogue.Builtin(name); def != nil {
		return def, nil
	}
	return nil, fmt.Errorf("unknown framework %q (builtins: %s)", name, strings.Join(catalogue.BuiltinNames(), ", "))
}

// outputPath resolves where an annotated file goes: in place with -w, into
// a directory or `{}` pattern with -o, or next to the input with an
// .annotated.lua extension.
func outputPath(input, output string, overwrite bool) string {
	if overwrite {
		return input
	}
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if output != "" {
		if info, err := os.Stat(output); err == nil && info.IsDir() {
			return filepath.Join(output, stem+".annotated.lua")
		}
		if strings.Contains(output, "{}") {
			return strings.ReplaceAll(output, "{}", stem)
		}
		return output
	}
	return strings.TrimSuffix(input, ".lua") + ".annotated.lua"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}
