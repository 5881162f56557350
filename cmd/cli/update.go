package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kcaldas/pdfgenie/pkg/update"
	"github.com/kcaldas/pdfgenie/pkg/version"
)

func newUpdateCommand() *cobra.Command {
	var (
		checkOnly     bool
		forceUpdate   bool
		targetVersion string
		updateTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update pdfgenie to the latest version",
		Long: `Update pdfgenie to the latest version from GitHub releases.

Examples:
  pdfgenie update           # Update to the latest version
  pdfgenie update --check   # Check for updates without updating
  pdfgenie update --force   # Force update even if same version`,
		RunE: func(cmd *cobra.Command, args []string) error {
			updater, err := update.NewUpdater()
			if err != nil {
				return fmt.Errorf("failed to create updater: %w", err)
			}

			cmd.Printf("Current version: %s\n", version.GetVersion())

			if checkOnly {
				return reportAvailableUpdate(cmd, updater)
			}

			info, err := updater.Run(cmd.Context(), update.Options{
				Force:         forceUpdate,
				TargetVersion: targetVersion,
				Timeout:       updateTimeout,
			})
			if err != nil {
				return fmt.Errorf("update failed: %w", err)
			}

			if !info.Outdated && !forceUpdate {
				cmd.Printf("✅ You are already using the latest version (%s).\n", info.Latest)
				cmd.Println("Use --force to reinstall the current version.")
				return nil
			}

			cmd.Printf("✅ Successfully updated to version %s!\n", info.Latest)
			cmd.Println("\n🚀 Restart pdfgenie to use the new version.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Check for updates without updating")
	cmd.Flags().BoolVar(&forceUpdate, "force", false, "Force update even if current version is latest")
	cmd.Flags().StringVar(&targetVersion, "version", "", "Update to specific version (latest release only)")
	cmd.Flags().DurationVar(&updateTimeout, "timeout", 5*time.Minute, "Timeout for update operation")

	return cmd
}

func reportAvailableUpdate(cmd *cobra.Command, updater *update.Updater) error {
	cmd.Println("Checking for updates...")

	info, err := updater.Check(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}

	cmd.Printf("Latest version: %s\n", info.Latest)
	if !info.Outdated {
		cmd.Println("✅ You are already using the latest version.")
		return nil
	}

	cmd.Println("🎉 A new version is available!")
	if info.Notes != "" {
		cmd.Printf("\nRelease Notes:\n%s\n", info.Notes)
	}
	cmd.Println("\nRun 'pdfgenie update' to install it.")
	return nil
}
