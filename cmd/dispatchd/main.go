// Command dispatchd runs the dispatch job service and inspects job records.
//
//	dispatchd serve [--config dispatchd.yaml]
//	dispatchd job get <job_id>
//	dispatchd version
package main

import (
	"fmt"
	"os"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
