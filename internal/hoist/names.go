package hoist

import (
	"strings"

	"github.com/bernharduw/parcel/internal/asset"
)

// sanitizeID normalizes an arbitrary asset id or module specifier into
// something that's valid inside a JS identifier: runs of characters other
// than [A-Za-z0-9_$] collapse to a single underscore.
func sanitizeID(s string) string {
	var b strings.Builder
	lastWasSep := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '$' {
			b.WriteRune(r)
			lastWasSep = false
		} else if !lastWasSep {
			b.WriteByte('_')
			lastWasSep = true
		}
	}
	return b.String()
}

func prefix(a *asset.Asset) string {
	return "$" + sanitizeID(a.ID)
}

func exportsName(a *asset.Asset) string {
	return prefix(a) + "$exports"
}

func cjsExportsName(a *asset.Asset) string {
	return prefix(a) + "$cjs_exports"
}

func exportName(a *asset.Asset, exported string) string {
	return prefix(a) + "$export$" + sanitizeID(exported)
}

// depID is the stable per-dependency component of an import/require
// identifier. A full pipeline would key this off the resolved target
// asset's id; since dependency resolution is out of scope here (§1), we
// derive it deterministically from the declared module specifier instead.
func depID(dep *asset.Dependency) string {
	return sanitizeID(dep.ModuleSpecifier)
}

func importName(a *asset.Asset, dep *asset.Dependency, local string) string {
	if local == "" {
		return prefix(a) + "$import$" + depID(dep)
	}
	return prefix(a) + "$import$" + depID(dep) + "$" + sanitizeID(local)
}

func importAsyncName(a *asset.Asset, dep *asset.Dependency, member string) string {
	return prefix(a) + "$importAsync$" + depID(dep) + "$" + sanitizeID(member)
}

func requireName(a *asset.Asset, source string) string {
	return prefix(a) + "$require$" + sanitizeID(source)
}

func varName(a *asset.Asset, original string) string {
	return prefix(a) + "$var$" + sanitizeID(original)
}

// runtimePlaceholders are the fixed set of names the invariant in §3 allows
// alongside the asset-prefix scheme.
var runtimePlaceholders = map[string]bool{
	"$parcel$require":         true,
	"$parcel$require$resolve": true,
	"$parcel$exportWildcard":  true,
	"$parcel$export":          true,
	"$parcel$global":          true,
	"parcelRequire":           true,
	"exports":                 true,
}

func hasAssetPrefix(a *asset.Asset, name string) bool {
	return strings.HasPrefix(name, prefix(a)+"$")
}
