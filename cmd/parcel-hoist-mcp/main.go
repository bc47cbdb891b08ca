// Command parcel-hoist-mcp serves the scope-hoisting transform as a Model
// Context Protocol tool over stdio.
package main

import (
	"fmt"
	"os"

	"github.com/bernharduw/parcel/internal/diag"
	"github.com/bernharduw/parcel/internal/mcpserver"
)

func main() {
	log := diag.NewLog(diag.LevelWarning)
	s := mcpserver.NewServer(log)
	defer s.Close()

	if err := s.ServeStdio(); err != nil {
		fmt.Fprintln(os.Stderr, "parcel-hoist-mcp:", err)
		os.Exit(1)
	}
}
