// Command kitchensync runs the kitchensync server and its tooling.
package main

import (
	"os"

	"github.com/roach88/kitchensync/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
