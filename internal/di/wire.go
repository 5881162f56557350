//go:build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/kcaldas/pdfgenie/pkg/ai"
	"github.com/kcaldas/pdfgenie/pkg/llm/multiplexer"
	"github.com/kcaldas/pdfgenie/pkg/renamer"
)

// ProvideMultiplexer provides the multiplexed generation client.
func ProvideMultiplexer() (*multiplexer.Client, error) {
	wire.Build(
		ProvideConfigManager,
		ProvideFileManager,
		ProvideMultiplexerClient,
	)
	return nil, nil
}

// ProvideRenamerService provides the rename pipeline wired to the given
// generation client and run options.
func ProvideRenamerService(gen ai.Gen, options renamer.Options) (*renamer.Service, error) {
	wire.Build(
		ProvideConfigManager,
		ProvideFileManager,
		ProvideExtractFunc,
		ProvidePromptLoader,
		ProvideRenamePrompt,
		ProvideLogger,
		renamer.NewService,
	)
	return nil, nil
}
