package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/pkglog/internal/level"
)

type writeOptions struct {
	topic string
	level string
}

func newWriteCmd(a *app) *cobra.Command {
	opts := &writeOptions{}

	cmd := &cobra.Command{
		Use:   "write [message] [values...]",
		Short: "Write a record to the log",
		Long: `Write a record through the configured provider.

The message may reference the remaining arguments with {N} placeholders.
Without arguments, every non-empty line read from stdin becomes a record.

Examples:
  pkglog write --topic api "listening on {0}" :8080
  pkglog write -t db -l warn "slow query"
  tail -f app.out | pkglog write -t app`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(a, cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.topic, "topic", "t", "main", "Record topic")
	cmd.Flags().StringVarP(&opts.level, "level", "l", "info", "Record level (trace/debug/info/warn/error/critical or 1-6)")
	return cmd
}

func runWrite(a *app, cmd *cobra.Command, opts *writeOptions, args []string) error {
	lvl, err := level.ParseString(opts.level)
	if err != nil {
		return err
	}

	p, err := a.provider(cmd)
	if err != nil {
		return err
	}
	log, err := p.GetLog(opts.topic)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		values := make([]any, len(args))
		for i, arg := range args {
			values[i] = arg
		}
		return log.Log(lvl, values...)
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	written := 0
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := log.Log(lvl, line); err != nil {
			return err
		}
		written++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	if written == 0 {
		return fmt.Errorf("nothing to write: pass a message or pipe lines to stdin")
	}
	return nil
}
