package asset

// Graph is the minimal asset-graph plumbing spec.md §3 assumes already
// exists ("dependencies for static/dynamic imports... are expected to
// already exist on the asset before hoisting runs") without specifying its
// shape. cmd/parcel-hoist registers each asset it hoists here with
// AddAsset; DependencyFor, which finds or registers the Dependency for a
// specifier, has no caller in this module.
type Graph struct {
	ByID map[string]*Asset
}

func NewGraph() *Graph {
	return &Graph{ByID: make(map[string]*Asset)}
}

func (g *Graph) AddAsset(a *Asset) {
	g.ByID[a.ID] = a
}

func (g *Graph) Lookup(id string) *Asset {
	return g.ByID[id]
}

// DependencyFor resolves a specifier seen inside fromAsset to the
// Dependency record fromAsset should carry for it, creating one the first
// time the specifier is seen. isAsync is only meaningful on first creation;
// a later static and dynamic import of the same specifier keep whichever
// Dependency was created first; spec.md makes the async/non-async split a
// property of the Dependency itself, not of any one reference to it.
func (g *Graph) DependencyFor(fromAsset *Asset, specifier string, isAsync bool) *Dependency {
	if dep := fromAsset.DependencyBySpecifier(specifier); dep != nil {
		return dep
	}
	dep := NewDependency(specifier, isAsync)
	fromAsset.AddDependency(dep)
	return dep
}
