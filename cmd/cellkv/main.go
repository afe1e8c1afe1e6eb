// Command cellkv is a thin CLI wrapper around the btree package: one
// process per invocation, opening the database, performing one operation,
// and closing it again. It exercises Insert/Get/Update/Delete/SelectAll,
// not a REPL or its own query grammar.
package main

import (
	"fmt"
	"os"

	"github.com/cellkv/cellkv/cmd/cellkv/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
