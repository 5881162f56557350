// Package template renders prompt text with Go's text/template syntax.
package template

import (
	"fmt"
	"strings"
	"text/template"
)

// Engine substitutes attribute values into template text.
type Engine interface {
	RenderString(templateContent string, data map[string]string) (string, error)
}

type textEngine struct{}

// NewEngine returns the stock text/template backed engine.
func NewEngine() Engine {
	return textEngine{}
}

func (textEngine) RenderString(templateContent string, data map[string]string) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateContent)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return out.String(), nil
}
