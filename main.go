package main

import (
	"os"

	"github.com/dev-mohitbeniwal/consentgate/api/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
