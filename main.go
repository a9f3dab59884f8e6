// scheduler is a privileged daemon that classifies running processes
// against declarative rules and applies kernel scheduling attributes
// (niceness, scheduling policy, I/O priority) on their behalf, with
// foreground and audio-session boost and CFS tuning on power transitions.
//
// Commands:
//
//	run     - Run the daemon in the foreground
//	status  - Query the running daemon's control bus
//	version - Print version information
package main

import (
	"fmt"
	"os"

	"scheduler-go/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
