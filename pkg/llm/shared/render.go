// Package shared holds helpers common to the LLM client packages.
package shared

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kcaldas/pdfgenie/pkg/ai"
	"github.com/kcaldas/pdfgenie/pkg/fileops"
)

// RenderPromptWithDebug renders the prompt with the given attributes. When
// debug is set, the initial prompt, the attributes, and the rendered prompt
// are dumped as YAML under the system temp directory for inspection.
func RenderPromptWithDebug(fileManager fileops.Manager, prompt ai.Prompt, debug bool, attrs []ai.Attr) (*ai.Prompt, error) {
	dump := func(suffix string, object interface{}) error {
		if !debug {
			return nil
		}
		path := filepath.Join(os.TempDir(), "pdfgenie", fmt.Sprintf("%s-%s.yaml", prompt.Name, suffix))
		return fileManager.WriteObjectAsYAML(path, object)
	}

	if err := dump("initial-prompt", prompt); err != nil {
		return nil, err
	}
	if err := dump("attrs", attrs); err != nil {
		return nil, err
	}

	rendered, err := ai.RenderPrompt(prompt, ai.AttrsToMap(attrs))
	if err != nil {
		return nil, fmt.Errorf("error rendering prompt: %w", err)
	}

	if err := dump("final-prompt", rendered); err != nil {
		return nil, err
	}

	return &rendered, nil
}
