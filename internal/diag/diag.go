// Package diag is the driver-facing diagnostic sink. The hoisting core
// itself never imports this package -- a library function reports failure
// through its return value (see hoist.Error), not by deciding how loud to
// be -- but cmd/parcel-hoist and cmd/parcel-hoist-mcp both take a *Log and
// use it to report a *hoist.Error's Kind alongside the asset it happened to.
package diag

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

type Level int8

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
	LevelSilent
)

type Kind uint8

const (
	Error Kind = iota
	Warning
	Note
)

func (k Kind) String() string {
	switch k {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	default:
		return "unknown"
	}
}

// Msg is one diagnostic. Asset is the asset ID it concerns, not a file path --
// the driver layer resolves IDs to paths for display.
type Msg struct {
	Kind  Kind
	Asset string
	Text  string
}

func (m Msg) String() string {
	if m.Asset == "" {
		return fmt.Sprintf("%s: %s", m.Kind, m.Text)
	}
	return fmt.Sprintf("%s: %s: %s", m.Asset, m.Kind, m.Text)
}

// Log collects messages as they happen and can be asked for a summary once
// a run finishes. It's safe for concurrent use; hoisting is single-threaded
// per asset (spec §5) but a driver may run several assets in parallel.
type Log struct {
	mu       sync.Mutex
	level    Level
	msgs     []Msg
	errors   int
	warnings int
}

func NewLog(level Level) *Log {
	return &Log{level: level}
}

func (l *Log) AddMsg(m Msg) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, m)
	switch m.Kind {
	case Error:
		l.errors++
	case Warning:
		l.warnings++
	}
	if l.level == LevelSilent {
		return
	}
	if m.Kind == Error && l.level <= LevelError {
		fmt.Fprintln(os.Stderr, m.String())
	} else if m.Kind == Warning && l.level <= LevelWarning {
		fmt.Fprintln(os.Stderr, m.String())
	} else if l.level <= LevelInfo {
		fmt.Fprintln(os.Stderr, m.String())
	}
}

func (l *Log) HasErrors() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errors > 0
}

// Done returns every message recorded so far, sorted by asset then kind so
// a batch run's output doesn't depend on goroutine scheduling.
func (l *Log) Done() []Msg {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Msg, len(l.msgs))
	copy(out, l.msgs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Asset != out[j].Asset {
			return out[i].Asset < out[j].Asset
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// ReportHoistError renders a *hoist.Error-shaped failure without this
// package importing internal/hoist, so diag stays usable from any layer
// (cache, watch, the MCP tool) that only has an error's Kind/message, not a
// concrete *hoist.Error value.
func (l *Log) ReportHoistError(asset string, kind fmt.Stringer, text string) {
	l.AddMsg(Msg{Kind: Error, Asset: asset, Text: fmt.Sprintf("%s: %s", kind, text)})
}
