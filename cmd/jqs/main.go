// Command jqs is the single external interface to the job queue: the
// submit/q/info/cancel/nodes CLI and the scheduler daemon itself (spec
// §6), built as one cobra binary the way azcopy/cmd builds its
// multi-subcommand surface.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}
