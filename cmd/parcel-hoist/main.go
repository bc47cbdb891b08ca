// Command parcel-hoist discovers JavaScript/TypeScript modules under a
// root directory, runs each one through the scope-hoisting transform, and
// prints the rewritten source. The assets it builds declare no
// dependencies, so a module with a static import or re-export is reported
// as a DependencyInvariantViolation and require()/import() calls are left
// as they are. With --watch it keeps running and re-hoists a file whenever
// it changes on disk; it registers no dependants with the watcher, so no
// other file is re-hoisted.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bernharduw/parcel/internal/asset"
	"github.com/bernharduw/parcel/internal/cache"
	"github.com/bernharduw/parcel/internal/config"
	"github.com/bernharduw/parcel/internal/diag"
	"github.com/bernharduw/parcel/internal/discover"
	"github.com/bernharduw/parcel/internal/hoist"
	"github.com/bernharduw/parcel/internal/parsebridge"
	"github.com/bernharduw/parcel/internal/watch"
)

func main() {
	cfg, err := config.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "parcel-hoist:", err)
		os.Exit(1)
	}

	log := diag.NewLog(diag.LevelWarning)

	store, err := cache.NewStore(cfg.CacheEntries)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parcel-hoist:", err)
		os.Exit(1)
	}
	defer store.Close()

	bridge := parsebridge.NewBridge()
	defer bridge.Close()

	graph := asset.NewGraph()
	driver := &driver{cfg: cfg, log: log, store: store, bridge: bridge, graph: graph}

	paths, err := discover.Walk(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parcel-hoist:", err)
		os.Exit(1)
	}

	for _, path := range paths {
		driver.run(path)
	}

	if cfg.Watch {
		w, err := watch.New(driver)
		if err != nil {
			fmt.Fprintln(os.Stderr, "parcel-hoist:", err)
			os.Exit(1)
		}
		driver.watcher = w
		for _, path := range paths {
			if err := w.Add(path); err != nil {
				log.AddMsg(diag.Msg{Kind: diag.Warning, Text: err.Error()})
			}
		}
		w.Run()
	}

	if log.HasErrors() {
		os.Exit(1)
	}
}

// driver is the glue the CLI and watch mode share: given a path, read its
// (possibly cached) source, parse it, hoist it, and report the outcome.
type driver struct {
	cfg     config.BuildConfig
	log     *diag.Log
	store   *cache.Store
	bridge  *parsebridge.Bridge
	graph   *asset.Graph
	watcher *watch.Watcher
}

func (d *driver) run(path string) {
	source, err := d.store.ReadSource(path)
	if err != nil {
		d.log.AddMsg(diag.Msg{Kind: diag.Error, Asset: path, Text: err.Error()})
		return
	}

	digest := cache.Digest(path, source)
	if cached, ok := d.store.Get(digest); ok {
		d.report(path, cached)
		return
	}

	tree, err := d.bridge.Parse(path, source, languageFor(path))
	if err != nil {
		d.log.AddMsg(diag.Msg{Kind: diag.Error, Asset: path, Text: err.Error()})
		return
	}

	a := asset.NewAsset(path, path, tree)
	a.Env = asset.Env{Node: d.cfg.Target.IsNode()}
	d.graph.AddAsset(a)

	hoistErr := hoist.Hoist(a)
	cached := &cache.CachedAsset{Tree: a.Tree, HoistErr: hoistErr}
	d.store.Put(digest, cached)

	d.report(path, cached)
}

func (d *driver) report(path string, cached *cache.CachedAsset) {
	if cached.HoistErr != nil {
		if he, ok := cached.HoistErr.(*hoist.Error); ok {
			d.log.ReportHoistError(path, he.Kind, he.Msg)
		} else {
			d.log.AddMsg(diag.Msg{Kind: diag.Error, Asset: path, Text: cached.HoistErr.Error()})
		}
		return
	}
	fmt.Println(parsebridge.Unparse(cached.Tree))
}

// OnChange implements watch.Handler.
func (d *driver) OnChange(path string) {
	d.store.Invalidate(path)
	d.run(path)
}

// OnRemove implements watch.Handler.
func (d *driver) OnRemove(path string) {
	d.store.Invalidate(path)
}

// OnDependantStale implements watch.Handler: assetID here is a path, since
// that's what this driver registers as an asset's ID.
func (d *driver) OnDependantStale(assetID string) {
	d.store.Invalidate(assetID)
	d.run(assetID)
}

func languageFor(path string) parsebridge.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts":
		return parsebridge.LanguageTypeScript
	case ".tsx":
		return parsebridge.LanguageTSX
	default:
		return parsebridge.LanguageJavaScript
	}
}
