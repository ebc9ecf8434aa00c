// Command lesson plays statically authored lessons in the terminal, keeping
// local state and mirroring progress to a Progress Service.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
