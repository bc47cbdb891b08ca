package asset

// Meta is the mutable, loosely-typed metadata bag both Asset and
// Dependency carry. The hoister reads and writes well-known keys on it
// (isCommonJS, isES6Module, shouldWrap, ...); anything else is opaque to
// this package and belongs to other pipeline stages.
type Meta map[string]any

func (m Meta) Bool(key string) bool {
	v, _ := m[key].(bool)
	return v
}

func (m Meta) SetBool(key string, value bool) {
	m[key] = value
}

func (m Meta) String(key string) string {
	v, _ := m[key].(string)
	return v
}

// Dependency is a declared reference from the owning asset to another
// module, identified by the original import specifier text. A prior
// resolution pass is expected to have already created one of these for
// every static/dynamic import and re-export before hoisting begins; the
// hoister only looks dependencies up, it never resolves specifiers itself.
type Dependency struct {
	ModuleSpecifier string

	// IsAsync is true for a dynamic import(); false for require()/static
	// import.
	IsAsync bool

	Meta    Meta
	Symbols *SymbolTable
}

func NewDependency(specifier string, isAsync bool) *Dependency {
	return &Dependency{ModuleSpecifier: specifier, IsAsync: isAsync, Meta: Meta{}}
}

// EnsureSymbols materializes the dependency's symbol table if it doesn't
// exist yet, per the §3 "ensure()" operation.
func (d *Dependency) EnsureSymbols() *SymbolTable {
	if d.Symbols == nil {
		d.Symbols = NewSymbolTable()
	}
	return d.Symbols
}
