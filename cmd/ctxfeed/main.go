package main

import (
	"os"

	"ctxfeed/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
