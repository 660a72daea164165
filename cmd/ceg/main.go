package main

import (
	"os"

	"github.com/shugein/ceg/cmd/ceg/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
