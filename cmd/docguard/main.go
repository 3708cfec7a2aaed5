// Command docguard analyzes documentation pages for content-quality
// violations.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/docguard/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
