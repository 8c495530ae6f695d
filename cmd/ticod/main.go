// Command ticod runs one of the three long-lived pipeline services:
//
//	ticod sync      - daily index synchronizer
//	ticod download  - article downloader and analyzer
//	ticod notify    - scheduled channel notifier
//
// Each subcommand is a single-process service; the three share the database
// and data directory. The process exits 0 on clean shutdown and non-zero on
// a configuration error before the main loop starts.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ticod:", err)
		os.Exit(1)
	}
}
