package main

import (
	"os"

	"github.com/factiva-io/factiva-analytics-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
