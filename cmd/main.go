// vmacro - mouse and keyboard macro recorder
// Records input to a line protocol and replays it with click-zone verification
package main

import (
	"os"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
