package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shuttleops/dispatchboard/config"
	"github.com/shuttleops/dispatchboard/core/command/audit"
)

var (
	auditBooking string
	auditOp      string
	auditSince   string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the mutation log",
	RunE:  queryAudit,
}

func init() {
	auditCmd.Flags().StringVar(&auditBooking, "booking", "", "filter by booking id")
	auditCmd.Flags().StringVar(&auditOp, "op", "", "filter by operation")
	auditCmd.Flags().StringVar(&auditSince, "since", "", "only records after this RFC3339 time")
	rootCmd.AddCommand(auditCmd)
}

func queryAudit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var store audit.LogStore
	switch cfg.Audit.Backend {
	case "sqlite":
		store, err = audit.NewSQLiteStore(cfg.Audit.Path)
	default:
		store, err = audit.NewJSONLStore(cfg.Audit.Path)
	}
	if err != nil {
		return fmt.Errorf("open audit store: %w", err)
	}
	defer func() { _ = store.Close() }()

	q := audit.Query{BookingID: auditBooking, Op: auditOp}
	if auditSince != "" {
		start, err := time.Parse(time.RFC3339, auditSince)
		if err != nil {
			return fmt.Errorf("parse since: %w", err)
		}
		q.Start = start
	}
	records, err := store.Query(cmd.Context(), q)
	if err != nil {
		return err
	}
	for _, r := range records {
		line := fmt.Sprintf("%s  %-14s %s", r.Timestamp.Format(time.RFC3339), r.Op, strings.Join(r.BookingIDs, ","))
		if r.DriverID != "" {
			line += fmt.Sprintf("  driver=%s", r.DriverID)
		}
		if r.Status != "" {
			line += fmt.Sprintf("  status=%s", r.Status)
		}
		if r.Error != "" {
			line += fmt.Sprintf("  error=%q", r.Error)
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
