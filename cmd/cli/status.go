package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kcaldas/pdfgenie/internal/di"
)

// newStatusCommand reports which generation backend is active and whether
// it is ready to serve requests.
func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the configured LLM backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			mux, err := di.ProvideMultiplexer()
			if err != nil {
				return fmt.Errorf("configuring generation backend: %w", err)
			}

			status := mux.GetStatus()
			cmd.Printf("Backend:  %s (default: %s)\n", status.Backend, mux.DefaultProvider())
			cmd.Printf("Known:    %s\n", strings.Join(mux.Providers(), ", "))
			if status.Model != "" {
				cmd.Printf("Model:    %s\n", status.Model)
			}
			if status.Connected {
				cmd.Println("State:    configured")
			} else {
				cmd.Println("State:    not configured")
			}
			if status.Message != "" {
				cmd.Printf("Message:  %s\n", status.Message)
			}
			return nil
		},
	}
}
