// Package cli wires the cobra command tree for the tradelens binary.
package cli

import (
	"os"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		DisplayError(err)
		os.Exit(1)
	}
}
