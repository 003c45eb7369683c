package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"resumeanalyzer/internal/app"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List recent analysis audit entries",
	RunE:  runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().Int("offset", 0, "entries to skip")
	logsCmd.Flags().Int("limit", 20, "entries to show")
}

func runLogs(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	offset, _ := cmd.Flags().GetInt("offset")
	limit, _ := cmd.Flags().GetInt("limit")

	repo, closeRepo, err := app.OpenAuditRepository(cfg)
	if err != nil {
		return err
	}
	if repo == nil {
		return errors.New("audit logging is disabled (audit.driver is none)")
	}
	defer func() { _ = closeRepo() }()

	entries, total, err := repo.ListRecent(cmd.Context(), offset, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tREQUEST\tUSER\tFILE\tMODE\tSTATUS\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.RequestID, e.UserID, e.Filename, e.Mode, e.Status, e.ErrorCode)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "showing %d of %d\n", len(entries), total)
	return nil
}
