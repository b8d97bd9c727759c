package main

import (
	"os"

	"github.com/mediawiki-utilities/go-mwapi/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
