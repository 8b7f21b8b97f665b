package main

import (
	"os"

	"github.com/atdir/atdir/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
