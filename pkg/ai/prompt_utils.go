package ai

import (
	"fmt"
	"strings"

	"github.com/kcaldas/pdfgenie/pkg/template"
)

// RenderPrompt substitutes attribute data into the prompt's text and
// instruction templates and returns the rendered copy. The base prompt is
// left untouched.
func RenderPrompt(base Prompt, data map[string]string) (Prompt, error) {
	rendered := base

	text, err := renderTemplate(base.Text, data)
	if err != nil {
		return Prompt{}, fmt.Errorf("rendering prompt text: %w", err)
	}
	rendered.Text = text

	instruction, err := renderTemplate(base.Instruction, data)
	if err != nil {
		return Prompt{}, fmt.Errorf("rendering prompt instruction: %w", err)
	}
	rendered.Instruction = instruction

	return rendered, nil
}

func renderTemplate(tpl string, data map[string]string) (string, error) {
	return template.NewEngine().RenderString(tpl, data)
}

// AttrsToMap flattens attributes into template data, last key wins.
func AttrsToMap(attrs []Attr) map[string]string {
	data := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		data[attr.Key] = attr.Value
	}
	return data
}

// StringsToAttr pairs up a flat key/value list.
func StringsToAttr(attrs []string) []Attr {
	if len(attrs)%2 != 0 {
		panic("attrs must have an even number of elements")
	}
	result := make([]Attr, 0, len(attrs)/2)
	for i := 0; i+1 < len(attrs); i += 2 {
		result = append(result, Attr{Key: attrs[i], Value: attrs[i+1]})
	}
	return result
}

// RemoveSurroundingMarkdown strips a markdown code fence wrapped around the
// content, along with blank lines at either end.
func RemoveSurroundingMarkdown(content string) string {
	isBlank := func(s string) bool { return strings.TrimSpace(s) == "" }
	isFence := func(s string) bool { return strings.HasPrefix(strings.TrimSpace(s), "```") }

	lines := strings.Split(content, "\n")

	start, end := 0, len(lines)
	for start < end && isBlank(lines[start]) {
		start++
	}
	if start < end && isFence(lines[start]) {
		start++
	}
	for end > start && isBlank(lines[end-1]) {
		end--
	}
	if end > start && isFence(lines[end-1]) {
		end--
	}

	return strings.Join(lines[start:end], "\n")
}
