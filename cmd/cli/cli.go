package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/kcaldas/pdfgenie/pkg/logging"
	"github.com/kcaldas/pdfgenie/pkg/version"
)

// Execute parses arguments and runs the selected command. A .env file in
// the working directory is loaded first so provider keys can live there.
func Execute() {
	if err := godotenv.Load(); err == nil {
		logging.Debug("loaded environment from .env")
	}

	RootCmd.SetVersionTemplate(version.GetInfo().String() + "\n")
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
