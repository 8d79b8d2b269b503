package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tapestry/safefetch/internal/adapter/filesystem"
	"github.com/tapestry/safefetch/internal/service/maintenance"
)

func (a *app) newSweepCommand() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove stale temp files left by interrupted downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := filesystem.NewManager(a.cfg.Download.OutputDir)
			if err != nil {
				return exitError(ExitFailed, err)
			}
			m := a.cfg.Maintenance
			sweeper := maintenance.New(&maintenance.Config{
				SweepInterval:  m.GetSweepInterval(),
				TempFileMaxAge: m.GetTempFileMaxAge(),
			}, fs, a.log)

			if watch {
				return sweeper.Run(cmd.Context())
			}

			n, err := sweeper.Sweep()
			if err != nil {
				return exitError(ExitFailed, err)
			}
			fmt.Fprintf(a.stdout, "removed %d temp file(s) from %s\n", n, fs.RootDir())
			return nil
		},
	}

	f := cmd.Flags()
	f.String("output-dir", ".", "directory to sweep")
	f.String("max-age", "24h", "remove temp files older than this")
	f.String("interval", "1h", "time between sweeps with --watch")
	f.BoolVar(&watch, "watch", false, "keep sweeping until interrupted")
	return cmd
}
