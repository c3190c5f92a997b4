package main

import (
	"os"

	"github.com/w3cp/w3cp/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
