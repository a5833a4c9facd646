package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statusCmd shows per-credential status and summary counts
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of all pooled credentials",
	Long: `Show each credential's rotation status (active, rate-limited, or
invalid), its request count, and whether a cached token is live. The
credential marked with * is the current rotation selection.`,
	RunE: runStatus,
}

// switchCmd manually moves the rotation cursor
var switchCmd = &cobra.Command{
	Use:   "switch <client-id>",
	Short: "Manually switch the pool to a specific credential",
	Long: `Move the rotation cursor to the given client id. The override is
honored only when that credential is currently active.`,
	Args: cobra.ExactArgs(1),
	RunE: runSwitch,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(switchCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := buildClient(cfg)
	report := client.Pool().Status()
	fmt.Println(report.String())
	return nil
}

func runSwitch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := buildClient(cfg)
	target := args[0]
	if !client.Pool().SwitchTo(target) {
		return fmt.Errorf("cannot switch to %q (not found or not active)", target)
	}
	fmt.Printf("switched to client %s\n", target)
	return nil
}
