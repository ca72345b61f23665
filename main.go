////////////////////////////////////////////////////////////////////////////////
// Presale pool: a pooled presale contribution ledger
////////////////////////////////////////////////////////////////////////////////

package main

import (
	"fmt"
	"os"

	"presale_pool/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
