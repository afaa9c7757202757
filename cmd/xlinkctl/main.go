// Command xlinkctl drives an xlinkd gateway over HTTP.
package main

import (
	"os"

	"github.com/Kirky-X/xlink/cmd/xlinkctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
