// The main package for the catalog-scraper executable.
package main

import (
	"os"

	"github.com/JakeFAU/catalog-scraper/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
