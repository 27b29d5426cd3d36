// Command stated expands typestate templates into Go code checked by the
// compiler.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/stated/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "stated: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
