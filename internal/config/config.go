// Package config resolves the small set of flags the hoisting driver
// (cmd/parcel-hoist) needs into one fully-resolved BuildConfig, the way
// esbuild's pkg/api turns a public Options struct into its internal
// config.Options. Flags are parsed by hand against os.Args the way
// esbuild's own cmd/esbuild/main.go does -- no pack repo reaches for a
// third-party flags library for its CLI entry point, so neither does this
// one (see DESIGN.md).
package config

import (
	"fmt"
	"strings"
)

// Target mirrors spec.md §3's "environment descriptor... carries at least
// an isNode() capability bit", as three runtime contexts. §4.5's
// module.require rewrite only reads the IsNode bit derived from it.
type Target string

const (
	TargetNode    Target = "node"
	TargetBrowser Target = "browser"
	TargetWorker  Target = "worker"
)

func (t Target) IsNode() bool { return t == TargetNode }

// BuildConfig is the resolved configuration cmd/parcel-hoist runs with
// (cmd/parcel-hoist-mcp takes no configuration).
type BuildConfig struct {
	Root         string
	Include      []string
	Exclude      []string
	CacheDir     string
	CacheEntries int
	Watch        bool
	MCPAddr      string
	Target       Target
}

func Default() BuildConfig {
	return BuildConfig{
		Root:         ".",
		Include:      []string{"**/*.js", "**/*.ts", "**/*.jsx", "**/*.tsx"},
		Exclude:      []string{"**/node_modules/**"},
		CacheEntries: 4096,
		Target:       TargetBrowser,
	}
}

// ParseArgs fills in a Default() from esbuild-style "--flag=value" /
// "--flag value" / bare "--flag" (boolean) arguments. Unknown flags are an
// error rather than silently ignored, matching esbuild's own strict flag
// parser in cmd/esbuild/main.go.
func ParseArgs(args []string) (BuildConfig, error) {
	cfg := Default()

	next := func(i *int) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("flag %q needs a value", args[*i])
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")

		switch name {
		case "--root":
			v := value
			if !hasValue {
				var err error
				v, err = next(&i)
				if err != nil {
					return cfg, err
				}
			}
			cfg.Root = v
		case "--include":
			v := value
			if !hasValue {
				var err error
				v, err = next(&i)
				if err != nil {
					return cfg, err
				}
			}
			cfg.Include = append(cfg.Include, v)
		case "--exclude":
			v := value
			if !hasValue {
				var err error
				v, err = next(&i)
				if err != nil {
					return cfg, err
				}
			}
			cfg.Exclude = append(cfg.Exclude, v)
		case "--cache-dir":
			v := value
			if !hasValue {
				var err error
				v, err = next(&i)
				if err != nil {
					return cfg, err
				}
			}
			cfg.CacheDir = v
		case "--watch":
			cfg.Watch = true
		case "--mcp-addr":
			v := value
			if !hasValue {
				var err error
				v, err = next(&i)
				if err != nil {
					return cfg, err
				}
			}
			cfg.MCPAddr = v
		case "--target":
			v := value
			if !hasValue {
				var err error
				v, err = next(&i)
				if err != nil {
					return cfg, err
				}
			}
			switch Target(v) {
			case TargetNode, TargetBrowser, TargetWorker:
				cfg.Target = Target(v)
			default:
				return cfg, fmt.Errorf("unknown target %q", v)
			}
		default:
			return cfg, fmt.Errorf("unknown flag %q", arg)
		}
	}

	return cfg, nil
}
