// Command pkglog writes, lists and follows date-partitioned log files.
package main

import (
	"os"

	"github.com/Iron-Ham/pkglog/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
