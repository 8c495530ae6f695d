// Command tico is the operator CLI for the pipeline: status counters, gap
// ranges, smart categories, and configuration scaffolding.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tico:", err)
		os.Exit(1)
	}
}
