package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shuttleops/dispatchboard/config"
)

var viewsCmd = &cobra.Command{
	Use:   "views",
	Short: "List the composed booking views",
	RunE:  listViews,
}

func init() {
	rootCmd.AddCommand(viewsCmd)
}

func listViews(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	views, err := cfg.Views.LoadViews()
	if err != nil {
		return err
	}
	for _, v := range views {
		line := fmt.Sprintf("%-16s %s", v.ID, v.Name)
		if v.Status != "" {
			line += fmt.Sprintf("  status=%s", v.Status)
		}
		if v.Driver != "" {
			line += fmt.Sprintf("  driver=%s", v.Driver)
		}
		if v.Payment != "" {
			line += fmt.Sprintf("  payment=%s", v.Payment)
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
