package main

import (
	"os"

	"github.com/bathingbrands/catalog-scraper/cmd/scraper/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
