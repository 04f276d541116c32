// Command corelog drives the corelog logging core from the shell: it pipes
// stdin through a configured logger, inspects what a configuration file does
// to every level and strips terminal escape sequences.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exitErr *ExitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
