package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/pkglog/internal/logging"
	"github.com/Iron-Ham/pkglog/internal/record"
)

func newFilesCmd(a *app) *cobra.Command {
	var pathsOnly bool

	cmd := &cobra.Command{
		Use:   "files",
		Short: "List retained log files",
		Long: `List the dated log files in the configured directory, oldest first.

Only files named {file}.{YYYY-MM-DD}.log are shown; they are the files
counted against the retention limit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}

			files, err := logging.ListFiles(cfg.Dir, cfg.File)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if pathsOnly {
				for _, f := range files {
					_, _ = fmt.Fprintln(out, f.Path)
				}
				return nil
			}
			if len(files) == 0 {
				_, _ = fmt.Fprintf(out, "No log files for %q in %s\n", cfg.File, cfg.Dir)
				return nil
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("FILE", "DATE", "SIZE")
			for _, f := range files {
				size := "-"
				if info, err := os.Stat(f.Path); err == nil {
					size = strconv.FormatInt(info.Size(), 10)
				}
				t.Row(f.Name, f.Date.Format(record.DateLayout), size)
			}
			_, _ = fmt.Fprintln(out, t.String())
			_, _ = fmt.Fprintf(out, "%d of %d files retained\n", len(files), cfg.Files)
			return nil
		},
	}

	cmd.Flags().BoolVar(&pathsOnly, "paths", false, "Print only file paths")
	return cmd
}
