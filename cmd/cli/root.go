package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/kcaldas/pdfgenie/internal/di"
	"github.com/kcaldas/pdfgenie/pkg/config"
	"github.com/kcaldas/pdfgenie/pkg/logging"
	"github.com/kcaldas/pdfgenie/pkg/renamer"
	"github.com/kcaldas/pdfgenie/pkg/version"
)

var (
	// Global flags
	targetDir string
	dryRun    bool
	debug     bool
	verbose   bool
	quiet     bool
)

// RootCmd is the base command. Without a subcommand it runs the rename
// pipeline over the target directory.
var RootCmd = &cobra.Command{
	Use:   "pdfgenie",
	Short: "Rename PDF files after their content",
	Long: `pdfgenie reads each PDF in a directory, newest first, extracts the first
page's text, asks a language model for a descriptive filename, and renames
the file.

The target directory comes from --dir, the PDFGENIE_DIR environment
variable, or an interactive prompt.`,
	Version: version.GetVersion(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var logger logging.Logger
		switch {
		case quiet:
			logger = logging.NewQuietLogger()
		case verbose:
			logger = logging.NewVerboseLogger()
		default:
			logger = logging.NewDefaultLogger()
		}

		// A short run id keeps interleaved runs apart in shared logs.
		runID := uuid.New().String()[:8]
		logging.SetGlobalLogger(logger.With("run", runID))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRename(cmd)
	},
}

func init() {
	// Global flags available to all commands
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug level)")
	RootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet output (errors only)")

	// Pipeline flags (root command only)
	RootCmd.Flags().StringVar(&targetDir, "dir", "", "directory containing the PDF files to rename")
	RootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report target names without renaming")
	RootCmd.Flags().BoolVar(&debug, "debug", false, "dump rendered prompts for inspection")

	addCommands()
}

// addCommands adds all CLI subcommands to the root command
func addCommands() {
	RootCmd.AddCommand(newStatusCommand())
	RootCmd.AddCommand(newUpdateCommand())
	RootCmd.AddCommand(newVersionCommand())
}

// runRename resolves the target directory and drives the pipeline.
func runRename(cmd *cobra.Command) error {
	configMgr := config.NewConfigManager()

	dir, err := resolveDirectory(configMgr)
	if err != nil {
		return err
	}

	mux, err := di.ProvideMultiplexer()
	if err != nil {
		return fmt.Errorf("configuring generation backend: %w", err)
	}
	// Surface a bad provider choice before any file is touched.
	if err := mux.WarmUp(""); err != nil {
		return err
	}

	options := renamer.Options{
		DryRun: dryRun,
		Debug:  debug || configMgr.GetBoolWithDefault("PDFGENIE_DEBUG", false),
	}
	service, err := di.ProvideRenamerService(mux, options)
	if err != nil {
		return err
	}

	outcomes, err := service.RenameDirectory(cmd.Context(), dir)
	if err != nil {
		return err
	}

	printOutcomes(cmd, outcomes)
	return nil
}

// resolveDirectory returns the directory to process: the --dir flag, then
// PDFGENIE_DIR, then an interactive prompt when stdin is a terminal.
func resolveDirectory(configMgr config.Manager) (string, error) {
	dir := targetDir
	if dir == "" {
		dir = configMgr.GetPipelineConfig().Directory
	}
	if dir == "" {
		if !stdinIsTerminal() {
			return "", fmt.Errorf("no directory configured: pass --dir or set PDFGENIE_DIR")
		}
		prompted, err := promptForDirectory()
		if err != nil {
			return "", err
		}
		dir = prompted
	}

	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", fmt.Errorf("expanding %s: %w", dir, err)
	}
	return expanded, nil
}

// printOutcomes writes one line per file plus a closing summary.
func printOutcomes(cmd *cobra.Command, outcomes []renamer.Outcome) {
	if len(outcomes) == 0 {
		cmd.Println("No PDF files found.")
		return
	}

	renamed, failed := 0, 0
	for _, outcome := range outcomes {
		switch {
		case outcome.Err != nil:
			failed++
			cmd.Printf("failed   %s: %v\n", outcome.Source, outcome.Err)
		case outcome.Renamed && outcome.DryRun:
			renamed++
			cmd.Printf("would rename  %s -> %s\n", outcome.Source, outcome.Target)
		case outcome.Renamed:
			renamed++
			cmd.Printf("renamed  %s -> %s\n", outcome.Source, outcome.Target)
		default:
			cmd.Printf("skipped  %s (name unchanged)\n", outcome.Source)
		}
	}
	cmd.Printf("\n%d renamed, %d skipped, %d failed\n", renamed, len(outcomes)-renamed-failed, failed)
}
