// cmd/console/main.go
//
// Scan-report console entry point.
//
// The binary is a thin shell around internal/cli.  Environment files are
// read by the config loader, so main only executes the command tree and
// maps an error to a non-zero exit.
package main

import (
	"os"

	"github.com/yanizio/scanconsole/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
