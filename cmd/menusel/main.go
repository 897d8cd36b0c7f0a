// Package main is the entry point for the menusel CLI.
package main

import (
	"os"

	"github.com/runger/menusel/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
