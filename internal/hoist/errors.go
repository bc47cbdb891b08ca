package hoist

import "fmt"

// ErrorKind distinguishes the four failure kinds the transform can surface,
// per §7 of the spec this package implements.
type ErrorKind uint8

const (
	// UnsupportedAST: the tree isn't tagged with a version this package
	// understands. Not recoverable; the caller should abort the asset.
	UnsupportedAST ErrorKind = iota

	// UnknownImportConstruct: an import clause specifier had a shape the
	// rewriter doesn't recognize.
	UnknownImportConstruct

	// UnknownExportConstruct: likewise, for an export declaration.
	UnknownExportConstruct

	// DependencyInvariantViolation: code demanded a dependency that
	// wasn't there (e.g. a static import with no matching Dependency).
	DependencyInvariantViolation
)

func (k ErrorKind) String() string {
	switch k {
	case UnsupportedAST:
		return "UnsupportedAST"
	case UnknownImportConstruct:
		return "UnknownImportConstruct"
	case UnknownExportConstruct:
		return "UnknownExportConstruct"
	case DependencyInvariantViolation:
		return "DependencyInvariantViolation"
	default:
		return "UnknownError"
	}
}

// Error is raised for any of the four failure kinds above. A
// "require(x)" call whose "x" has no declared dependency is deliberately
// *not* one of these -- per §7 that case is a silent no-op, handled by
// simply leaving the call alone.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// raise panics carrying an *Error. hoist.Hoist recovers this into a normal
// error return, which lets the rewriters assert invariants (a missing
// dependency where one is required, an unrecognized clause shape) without
// threading an error value through every handler signature.
func raise(kind ErrorKind, format string, args ...any) {
	panic(newError(kind, format, args...))
}
