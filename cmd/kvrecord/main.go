// Command kvrecord stores and inspects collection records in a key-value
// substrate.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/kvrecord/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
