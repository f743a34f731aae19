package main

import (
	"fmt"
	"os"

	"github.com/sealix-io/sealix/internal/cli"
	"github.com/sealix-io/sealix/internal/secure"
)

func main() {
	// Wipe every protected buffer on the way out, error paths included.
	defer secure.Purge()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		secure.Purge()
		os.Exit(1)
	}
}
