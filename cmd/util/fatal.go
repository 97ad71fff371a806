package util

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bacalhau-project/tiercache/cmd/util/output"
)

// Fatal prints err to the command's error stream and exits with code. Tests
// replace it to observe failures without exiting.
var Fatal = fatalError

func fatalError(cmd *cobra.Command, err error, code int) {
	if msg := err.Error(); msg != "" {
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		cmd.PrintErr(output.RedStr(msg))
	}
	os.Exit(code)
}
