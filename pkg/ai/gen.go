package ai

import "context"

// Gen is the contract every text-generation backend implements. Prompt
// execution is single-shot: render the prompt with the given attributes,
// send it, return the model's text.
type Gen interface {
	GenerateContent(ctx context.Context, p Prompt, debug bool, args ...string) (string, error)
	GenerateContentAttr(ctx context.Context, p Prompt, debug bool, attrs []Attr) (string, error)
	CountTokens(ctx context.Context, p Prompt, debug bool, args ...string) (*TokenCount, error)
	CountTokensAttr(ctx context.Context, p Prompt, debug bool, attrs []Attr) (*TokenCount, error)
	GetStatus() *Status
}

// An Attr is a key-value pair used to fill prompt template slots.
type Attr struct {
	Key   string
	Value string
}

// Prompt describes one request to a generation backend. Instruction is the
// system message, Text the user message template.
type Prompt struct {
	Name        string  `yaml:"name"`
	Instruction string  `yaml:"instruction"`
	Text        string  `yaml:"text"`
	LLMProvider string  `yaml:"llm_provider,omitempty"`
	ModelName   string  `yaml:"model_name"`
	MaxTokens   int32   `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
	TopP        float32 `yaml:"top_p"`
}

// TokenCount reports token usage for a prompt or a completed exchange.
type TokenCount struct {
	TotalTokens  int32
	InputTokens  int32
	OutputTokens int32
}

// Status describes a backend's configuration and reachability.
type Status struct {
	Model     string
	Backend   string
	Connected bool
	Message   string
}
