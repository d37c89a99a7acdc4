package main

import (
	"os"

	"github.com/pilacorp/go-didjwt-sdk/cmd/didjwt/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
