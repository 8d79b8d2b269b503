package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/tapestry/safefetch/internal/domain"
)

var errNoJournal = errors.New("no journal configured; set journal.path or --journal")

func (a *app) newHistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent downloads from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openJournal()
			if err != nil {
				return exitError(ExitFailed, err)
			}
			if store == nil {
				return exitError(ExitRejected, errNoJournal)
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return exitError(ExitFailed, err)
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.stdout, "no downloads recorded")
				return nil
			}
			fmt.Fprintln(a.stdout, formatHistory(entries))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries to show")
	return cmd
}

func formatHistory(entries []*domain.JournalEntry) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 50
	table.AddRow("STARTED", "STATUS", "SIZE", "NAME", "DETAIL")
	for _, e := range entries {
		size := "-"
		if e.Status == domain.JournalStatusCompleted {
			size = humanize.IBytes(uint64(e.Bytes))
		}
		detail := e.Detail
		if detail == "" {
			detail = e.URL
		}
		table.AddRow(e.StartedAt.Local().Format(time.DateTime), e.Status, size, e.Destination, detail)
	}
	return table
}
