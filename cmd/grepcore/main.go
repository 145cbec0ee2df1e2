// Command grepcore is the CLI entrypoint wiring the pattern compiler,
// match engine, buffer manager, line printer, and traversal packages
// together behind a narrow RunE callback the core packages are
// deliberately kept ignorant of.
package main

import (
	"fmt"
	"os"
)

func main() {
	code, err := Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "grepcore: %s\n", err)
		if code == 0 {
			code = 2
		}
	}
	os.Exit(code)
}
