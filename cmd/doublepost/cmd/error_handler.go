package cmd

import (
	"fmt"
	"os"

	"doublepost/pkg/errors"
	"doublepost/pkg/logger"
)

// HandleError prints a user-facing message for a failed command and returns
// the process exit code.
func HandleError(err error) int {
	if err == nil {
		return 0
	}

	logger.GetGlobalLogger().WithComponent("cli").WithError(err).Debug("Command failed")
	fmt.Fprintln(os.Stderr, errors.FormatUserError(err))
	return errors.GetExitCode(err)
}
