package main

import "fmt"

// Exit code of commands that did their job but hit non-fatal errors on the
// way (e.g. a configuration applied with some outputs failing).
const EXIT_PARTIAL = 2

// ExitCodeError makes the process exit with Code. The failure has already
// been reported by the command returning it.
type ExitCodeError struct {
	Code int
}

func NewExitCodeError(code int) *ExitCodeError {
	return &ExitCodeError{Code: code}
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}
