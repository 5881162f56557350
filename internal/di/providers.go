// Package di assembles the application graph with Wire. Providers live
// here; the injectors are declared in wire.go and implemented in the
// generated wire_gen.go.
package di

import (
	"github.com/kcaldas/pdfgenie/pkg/ai"
	"github.com/kcaldas/pdfgenie/pkg/config"
	"github.com/kcaldas/pdfgenie/pkg/extract"
	"github.com/kcaldas/pdfgenie/pkg/fileops"
	"github.com/kcaldas/pdfgenie/pkg/llm/anthropic"
	"github.com/kcaldas/pdfgenie/pkg/llm/genai"
	"github.com/kcaldas/pdfgenie/pkg/llm/multiplexer"
	"github.com/kcaldas/pdfgenie/pkg/llm/ollama"
	"github.com/kcaldas/pdfgenie/pkg/llm/openai"
	"github.com/kcaldas/pdfgenie/pkg/llm/vertex"
	"github.com/kcaldas/pdfgenie/pkg/logging"
	"github.com/kcaldas/pdfgenie/pkg/prompts"
	"github.com/kcaldas/pdfgenie/pkg/renamer"
)

// ProvideConfigManager provides the environment-backed configuration manager.
func ProvideConfigManager() config.Manager {
	return config.NewConfigManager()
}

// ProvideFileManager provides the default file operations manager.
func ProvideFileManager() fileops.Manager {
	return fileops.NewFileOpsManager()
}

// ProvideLogger provides the process-global logger, configured by the CLI
// before the graph is built.
func ProvideLogger() logging.Logger {
	return logging.GetGlobalLogger()
}

// ProvideExtractFunc provides first-page PDF text extraction.
func ProvideExtractFunc() renamer.ExtractFunc {
	return extract.FirstPageText
}

// ProvidePromptLoader provides the prompt loader. Prompts ship embedded;
// PDFGENIE_PROMPTS_PATH points the loader at a directory instead, for
// experimenting with prompt wording without rebuilding.
func ProvidePromptLoader(configMgr config.Manager) prompts.Loader {
	if path := configMgr.GetStringWithDefault("PDFGENIE_PROMPTS_PATH", ""); path != "" {
		return &prompts.FileLoader{PromptsPath: path}
	}
	return prompts.NewPromptLoader()
}

// ProvideRenamePrompt loads the naming prompt.
func ProvideRenamePrompt(loader prompts.Loader) (ai.Prompt, error) {
	return loader.LoadPrompt(prompts.RenamePrompt)
}

// ProvideMultiplexerClient builds the provider registry. Every backend is
// registered; only the selected one is constructed, on first use.
func ProvideMultiplexerClient(configMgr config.Manager, files fileops.Manager) (*multiplexer.Client, error) {
	factories := map[string]multiplexer.Factory{
		"openai": func() (ai.Gen, error) {
			return openai.NewClient(openai.WithConfigManager(configMgr), openai.WithFileManager(files))
		},
		"genai": func() (ai.Gen, error) {
			return genai.NewClient()
		},
		"anthropic": func() (ai.Gen, error) {
			return anthropic.NewClient(anthropic.WithConfigManager(configMgr), anthropic.WithFileManager(files))
		},
		"ollama": func() (ai.Gen, error) {
			return ollama.NewClient(ollama.WithConfigManager(configMgr), ollama.WithFileManager(files))
		},
		"vertex": func() (ai.Gen, error) {
			return vertex.NewClient()
		},
	}
	aliases := map[string]string{
		"gemini":   "genai",
		"claude":   "anthropic",
		"gpt":      "openai",
		"vertexai": "vertex",
	}

	provider := configMgr.GetStringWithDefault("PDFGENIE_LLM_PROVIDER", "openai")
	return multiplexer.NewClient(provider, factories, aliases)
}
