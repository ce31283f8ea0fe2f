package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	purgeDays   int
	purgeVerify bool
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove done tasks older than the retention window",
	Long: `Remove done tasks whose last update is older than the retention
window (config retention_days, default 7). With --verify, also check
that the derived side files agree with the store.`,
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().IntVar(&purgeDays, "days", -1, "Override the retention window in days (0 purges every done task)")
	purgeCmd.Flags().BoolVar(&purgeVerify, "verify", false, "Check derived side files against the store")
}

func runPurge(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	days := a.cfg.RetentionDays
	if cmd.Flags().Changed("days") {
		days = purgeDays
	}

	removed, err := a.mgr.PurgeAged(days)
	if err != nil {
		return err
	}
	if removed == 0 {
		fmt.Println("Nothing to purge.")
	} else {
		fmt.Printf("%s Purged %d done task(s) older than %d day(s)\n", color.GreenString("✓"), removed, days)
	}

	if purgeVerify {
		problems, err := a.sync.Verify()
		if err != nil {
			return err
		}
		if len(problems) == 0 {
			fmt.Printf("%s Side files agree with the store\n", color.GreenString("✓"))
		} else {
			for _, p := range problems {
				fmt.Printf("%s %s\n", color.YellowString("⚠"), p)
			}
			if err := a.sync.Sync(); err != nil {
				return fmt.Errorf("regenerate side files: %w", err)
			}
			fmt.Printf("%s Side files regenerated\n", color.GreenString("✓"))
		}
	}
	return nil
}
