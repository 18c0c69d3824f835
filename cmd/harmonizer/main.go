// Command harmonizer converts JSON catalog exports to CSV from the command line.
package main

import (
	"os"

	"github.com/JonMunkholm/harmonizer/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
