package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"

	"github.com/ivseb/strapi-sync-wizard/internal/compare"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // successful execution
	ExitFailure      = 1 // run failures (items failed, schema incompatible)
	ExitCommandError = 2 // command error (bad config, store unreachable)
)

// ExitError carries a specific exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// GetExitCode extracts the exit code from an error. Non-ExitError
// errors map to ExitCommandError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

var (
	stateColors = map[compare.State]*color.Color{
		compare.StateOnlyInSource: color.New(color.FgGreen),
		compare.StateOnlyInTarget: color.New(color.FgRed),
		compare.StateDifferent:    color.New(color.FgYellow),
		compare.StateIdentical:    color.New(color.FgHiBlack),
	}
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	pendingColor = color.New(color.FgYellow)
)

func colorState(s compare.State) string {
	if c, ok := stateColors[s]; ok {
		return c.Sprint(string(s))
	}
	return string(s)
}
