package main

import (
	"os"

	"github.com/ladnerlab/autopepsirf/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
