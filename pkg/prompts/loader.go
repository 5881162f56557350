// Package prompts ships the built-in prompt definitions and the loaders
// that read them.
package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/kcaldas/pdfgenie/pkg/ai"
)

// RenamePrompt is the name of the built-in prompt that asks a model to
// suggest a filename for extracted document content.
const RenamePrompt = "rename"

//go:embed prompts/*
var promptsFS embed.FS

// Loader defines how prompts are loaded.
type Loader interface {
	LoadPrompt(promptName string) (ai.Prompt, error)
}

type embeddedLoader struct {
	fsys fs.FS
}

// NewPromptLoader returns the loader backed by the embedded prompt files.
func NewPromptLoader() Loader {
	return embeddedLoader{fsys: promptsFS}
}

func (l embeddedLoader) LoadPrompt(promptName string) (ai.Prompt, error) {
	data, err := fs.ReadFile(l.fsys, "prompts/"+promptName+".yaml")
	if err != nil {
		return ai.Prompt{}, fmt.Errorf("error reading embedded prompt file: %w", err)
	}
	return decodePrompt(data)
}

// FileLoader reads prompts from a directory on disk, used to override the
// embedded wording without rebuilding.
type FileLoader struct {
	PromptsPath string
}

func (l *FileLoader) LoadPrompt(promptName string) (ai.Prompt, error) {
	data, err := os.ReadFile(filepath.Join(l.PromptsPath, promptName+".yaml"))
	if err != nil {
		return ai.Prompt{}, fmt.Errorf("error reading prompt file: %w", err)
	}
	return decodePrompt(data)
}

func decodePrompt(data []byte) (ai.Prompt, error) {
	var prompt ai.Prompt
	if err := yaml.Unmarshal(data, &prompt); err != nil {
		return ai.Prompt{}, fmt.Errorf("error unmarshaling prompt: %w", err)
	}
	return prompt, nil
}
