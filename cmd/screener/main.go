// Command screener runs a one-shot screening of the latest client roster
// against the sanctions watchlist and writes a text report.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
