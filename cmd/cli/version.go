package cli

import (
	"github.com/spf13/cobra"

	"github.com/kcaldas/pdfgenie/pkg/version"
)

// newVersionCommand prints detailed build information.
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version.GetInfo().String())
		},
	}
}
