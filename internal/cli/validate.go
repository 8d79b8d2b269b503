package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tapestry/safefetch/internal/service/urlguard"
)

func (a *app) newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <url>",
		Short: "Check whether a URL is safe to fetch",
		Long: `Check a URL against the scheme allow-list, embedded credentials and
internal network hosts. Prints "valid" and exits 0 when the URL is accepted.
Path traversal patterns produce a warning but do not reject the URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := urlguard.Validate(args[0])
			a.printWarnings(v.Warnings())
			if !v.Accepted() {
				return exitError(ExitRejected, v.Err())
			}
			fmt.Fprintln(a.stdout, "valid")
			return nil
		},
	}
}

func (a *app) printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(a.stderr, "Warning: %s\n", w)
	}
}
