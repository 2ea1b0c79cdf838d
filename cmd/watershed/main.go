// Package main is the entry point for the watershed CLI binary.
package main

import (
	"os"

	cli "watershed/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
