package main

import (
	"os"

	"pairlink/cmd/pairlink/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
