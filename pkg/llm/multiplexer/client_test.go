package multiplexer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcaldas/pdfgenie/pkg/ai"
)

// stubGen answers every generation call with its own name, which lets the
// tests see which backend a call landed on.
type stubGen struct {
	name  string
	calls int
}

func stub(name string) *stubGen { return &stubGen{name: name} }

func factoryFor(g *stubGen) Factory {
	return func() (ai.Gen, error) { return g, nil }
}

func (s *stubGen) GenerateContent(ctx context.Context, p ai.Prompt, debug bool, args ...string) (string, error) {
	s.calls++
	return s.name, nil
}

func (s *stubGen) GenerateContentAttr(ctx context.Context, p ai.Prompt, debug bool, attrs []ai.Attr) (string, error) {
	s.calls++
	return s.name, nil
}

func (s *stubGen) CountTokens(ctx context.Context, p ai.Prompt, debug bool, args ...string) (*ai.TokenCount, error) {
	return &ai.TokenCount{TotalTokens: 1}, nil
}

func (s *stubGen) CountTokensAttr(ctx context.Context, p ai.Prompt, debug bool, attrs []ai.Attr) (*ai.TokenCount, error) {
	return &ai.TokenCount{TotalTokens: 1}, nil
}

func (s *stubGen) GetStatus() *ai.Status {
	return &ai.Status{Backend: s.name, Connected: true}
}

func TestMultiplexer_DefaultProviderUsedWhenPromptOmitted(t *testing.T) {
	openaiStub := stub("openai")
	ollamaStub := stub("ollama")

	client, err := NewClient("openai", map[string]Factory{
		"openai": factoryFor(openaiStub),
		"ollama": factoryFor(ollamaStub),
	}, nil)
	require.NoError(t, err)

	require.NoError(t, client.WarmUp(""))

	resp, err := client.GenerateContent(context.Background(), ai.Prompt{}, false)
	require.NoError(t, err)
	assert.Equal(t, "openai", resp)
	assert.Equal(t, 1, openaiStub.calls)
	assert.Equal(t, 0, ollamaStub.calls, "the unselected backend stays untouched")

	status := client.GetStatus()
	require.NotNil(t, status)
	assert.Equal(t, "openai", status.Backend)
}

func TestMultiplexer_RoutesBasedOnPromptProvider(t *testing.T) {
	genaiStub := stub("genai")
	anthropicStub := stub("anthropic")

	client, err := NewClient("gemini", map[string]Factory{
		"genai":     factoryFor(genaiStub),
		"anthropic": factoryFor(anthropicStub),
	}, map[string]string{
		"gemini": "genai",
		"claude": "anthropic",
	})
	require.NoError(t, err)

	// The default resolves through the alias table.
	assert.Equal(t, "genai", client.DefaultProvider())
	require.NoError(t, client.WarmUp("gemini"))

	// Provider names in prompts are matched case-insensitively.
	resp, err := client.GenerateContent(context.Background(), ai.Prompt{LLMProvider: "Claude"}, false)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", resp)
	assert.Equal(t, 0, genaiStub.calls)
	assert.Equal(t, 1, anthropicStub.calls)

	// GetStatus reports on the backend that served the last call.
	status := client.GetStatus()
	require.NotNil(t, status)
	assert.Equal(t, "anthropic", status.Backend)
}

func TestMultiplexer_FactoryRunsOnce(t *testing.T) {
	factoryCalls := 0

	client, err := NewClient("openai", map[string]Factory{
		"openai": func() (ai.Gen, error) {
			factoryCalls++
			return stub("openai"), nil
		},
	}, nil)
	require.NoError(t, err)

	_, err = client.GenerateContent(context.Background(), ai.Prompt{}, false)
	require.NoError(t, err)
	_, err = client.GenerateContentAttr(context.Background(), ai.Prompt{}, false, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, factoryCalls)
}

func TestMultiplexer_ProvidersSorted(t *testing.T) {
	client, err := NewClient("openai", map[string]Factory{
		"Openai": factoryFor(stub("openai")),
		"genai":  factoryFor(stub("genai")),
		"ollama": factoryFor(stub("ollama")),
	}, map[string]string{"gemini": "genai"})
	require.NoError(t, err)

	// Canonical names only, lowercased, aliases excluded.
	assert.Equal(t, []string{"genai", "ollama", "openai"}, client.Providers())
}

func TestMultiplexer_ErrorOnUnknownProvider(t *testing.T) {
	client, err := NewClient("openai", map[string]Factory{
		"openai": factoryFor(stub("openai")),
	}, nil)
	require.NoError(t, err)

	_, err = client.GenerateContent(context.Background(), ai.Prompt{LLMProvider: "mistral"}, false)
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported LLM provider")
}

func TestMultiplexer_ErrorOnUnknownDefault(t *testing.T) {
	_, err := NewClient("mistral", map[string]Factory{
		"openai": factoryFor(stub("openai")),
	}, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported default provider")
}

func TestMultiplexer_PropagatesFactoryErrors(t *testing.T) {
	client, err := NewClient("openai", map[string]Factory{
		"openai": func() (ai.Gen, error) { return nil, errors.New("boom") },
	}, nil)
	require.NoError(t, err)

	_, err = client.GenerateContent(context.Background(), ai.Prompt{}, false)
	require.Error(t, err)
	assert.ErrorContains(t, err, "boom")

	status := client.GetStatus()
	require.NotNil(t, status)
	assert.False(t, status.Connected)
	assert.Contains(t, status.Message, "boom")
}
