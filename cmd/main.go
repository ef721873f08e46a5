package main

import (
	"os"

	"github.com/quarrylabs/stratum/cmd/stratum"
)

func main() {
	if err := stratum.Execute(); err != nil {
		os.Exit(1)
	}
}
