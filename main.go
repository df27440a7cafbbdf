package main

import (
	"os"

	"github.com/degagne/gossh/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
