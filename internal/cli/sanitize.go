package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tapestry/safefetch/internal/service/sanitizer"
)

func (a *app) newSanitizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sanitize <raw> [max_length]",
		Short: "Turn an untrusted title into a safe file name",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxLength := a.cfg.Sanitize.MaxLength
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n <= 0 {
					return usageError(fmt.Errorf("max_length must be a positive integer, got %q", args[1]))
				}
				maxLength = n
			}
			fmt.Fprintln(a.stdout, sanitizer.Sanitize(args[0], maxLength))
			return nil
		},
	}
	cmd.Flags().Int("max-length", 100, "maximum name length in code points")
	return cmd
}
