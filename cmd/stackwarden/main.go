// stackwarden supervises a single-container application stack through
// supervisord: it sequences the boot order, runs scheduled health audits
// with preventive restarts, and consumes process lifecycle events.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
