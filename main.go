// The main package for the lexharvest executable.
package main

import (
	"github.com/vgassen/lexharvest/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
