package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tapestry/safefetch/internal/domain"
	"github.com/tapestry/safefetch/internal/service/verifier"
)

func (a *app) newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <path> <kind>",
		Short: "Check a file's header against an expected content kind",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseContentKind(args[1])
			if err != nil {
				return usageError(err)
			}
			if err := verifier.Check(args[0], kind); err != nil {
				return exitError(ExitRejected, err)
			}
			fmt.Fprintf(a.stdout, "ok %s\n", kind)
			return nil
		},
	}
}
