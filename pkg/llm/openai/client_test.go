package openai

import (
	"context"
	"errors"
	"sync"
	"testing"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcaldas/pdfgenie/pkg/ai"
	"github.com/kcaldas/pdfgenie/pkg/config"
)

// chatStub records every request it sees and serves canned completions
// in order.
type chatStub struct {
	t *testing.T

	mu    sync.Mutex
	sent  []openai.ChatCompletionNewParams
	queue []*openai.ChatCompletion
	fail  error
}

func (s *chatStub) New(_ context.Context, params openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, params)
	if s.fail != nil {
		return nil, s.fail
	}
	if len(s.queue) == 0 {
		require.FailNow(s.t, "chat stub ran out of queued completions")
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	return next, nil
}

// onlySent returns the recorded request, failing unless exactly one was made.
func (s *chatStub) onlySent() openai.ChatCompletionNewParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(s.t, s.sent, 1)
	return s.sent[0]
}

func newStubbedClient(t *testing.T, stub *chatStub, extra ...Option) *Client {
	t.Helper()
	opts := append([]Option{WithChatClient(stub)}, extra...)
	gen, err := NewClient(opts...)
	require.NoError(t, err)
	return gen.(*Client)
}

// completion builds a single-choice assistant response.
func completion(model shared.ChatModel, content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		ID:     "resp",
		Object: constant.ChatCompletion(""),
		Model:  string(model),
		Choices: []openai.ChatCompletionChoice{
			{
				Index:        0,
				FinishReason: "stop",
				Message: openai.ChatCompletionMessage{
					Role:    constant.Assistant(""),
					Content: content,
				},
			},
		},
	}
}

type stubConfigManager struct {
	config.Manager
	model config.ModelConfig
}

func newStubConfig(model config.ModelConfig) *stubConfigManager {
	return &stubConfigManager{Manager: config.NewConfigManager(), model: model}
}

func (s *stubConfigManager) GetModelConfig() config.ModelConfig {
	return s.model
}

func TestClient_GenerateContent_SimpleResponse(t *testing.T) {
	stub := &chatStub{t: t, queue: []*openai.ChatCompletion{completion(shared.ChatModelGPT4oMini, "Annual_Report_2024")}}
	client := newStubbedClient(t, stub)

	prompt := ai.Prompt{
		Name:        "rename",
		Instruction: "You generate filenames.",
		Text:        "Annual report for fiscal year 2024.",
		ModelName:   string(shared.ChatModelGPT4oMini),
	}

	resp, err := client.GenerateContent(context.Background(), prompt, false)
	require.NoError(t, err)
	assert.Equal(t, "Annual_Report_2024", resp)

	request := stub.onlySent()
	assert.Equal(t, shared.ChatModelGPT4oMini, request.Model)
	require.Len(t, request.Messages, 2)
	require.NotNil(t, request.Messages[0].OfSystem)
	require.True(t, request.Messages[0].OfSystem.Content.OfString.Valid())
	assert.Equal(t, "You generate filenames.", request.Messages[0].OfSystem.Content.OfString.Value)
	require.NotNil(t, request.Messages[1].OfUser)
	require.True(t, request.Messages[1].OfUser.Content.OfString.Valid())
	assert.Equal(t, "Annual report for fiscal year 2024.", request.Messages[1].OfUser.Content.OfString.Value)
}

func TestClient_GenerateContent_RendersTemplate(t *testing.T) {
	stub := &chatStub{t: t, queue: []*openai.ChatCompletion{completion(shared.ChatModelGPT4oMini, "Quarterly_Figures")}}
	client := newStubbedClient(t, stub)

	prompt := ai.Prompt{
		Name:      "rename",
		Text:      "{{.content}}",
		ModelName: string(shared.ChatModelGPT4oMini),
	}

	resp, err := client.GenerateContent(context.Background(), prompt, false, "content", "Quarterly figures for Q3.")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly_Figures", resp)

	request := stub.onlySent()
	require.Len(t, request.Messages, 1)
	require.NotNil(t, request.Messages[0].OfUser)
	assert.Equal(t, "Quarterly figures for Q3.", request.Messages[0].OfUser.Content.OfString.Value)
}

func TestClient_GenerateContent_AppliesGenerationConfig(t *testing.T) {
	resp := completion(shared.ChatModelGPT4oMini, "ok")
	resp.Usage = openai.CompletionUsage{PromptTokens: 12, CompletionTokens: 4, TotalTokens: 16}
	stub := &chatStub{t: t, queue: []*openai.ChatCompletion{resp}}
	client := newStubbedClient(t, stub)

	prompt := ai.Prompt{
		Name:        "rename",
		Text:        "some content",
		ModelName:   string(shared.ChatModelGPT4oMini),
		MaxTokens:   64,
		Temperature: 0.35,
		TopP:        0.8,
	}

	_, err := client.GenerateContent(context.Background(), prompt, false)
	require.NoError(t, err)

	request := stub.onlySent()
	require.True(t, request.MaxCompletionTokens.Valid())
	assert.Equal(t, int64(64), request.MaxCompletionTokens.Value)
	require.True(t, request.Temperature.Valid())
	assert.InDelta(t, 0.35, request.Temperature.Value, 1e-6)
	require.True(t, request.TopP.Valid())
	assert.InDelta(t, 0.8, request.TopP.Value, 1e-6)
}

func TestClient_GenerateContent_ReasoningModelOmitsSampling(t *testing.T) {
	stub := &chatStub{t: t, queue: []*openai.ChatCompletion{completion("o1-mini", "ok")}}
	client := newStubbedClient(t, stub)

	prompt := ai.Prompt{
		Name:        "rename",
		Text:        "some content",
		ModelName:   "o1-mini",
		MaxTokens:   64,
		Temperature: 0.5,
		TopP:        0.8,
	}

	_, err := client.GenerateContent(context.Background(), prompt, false)
	require.NoError(t, err)

	request := stub.onlySent()
	require.True(t, request.MaxCompletionTokens.Valid())
	assert.Equal(t, int64(64), request.MaxCompletionTokens.Value)
	assert.False(t, request.Temperature.Valid())
	assert.False(t, request.TopP.Valid())
}

func TestClient_GenerateContent_UsesConfiguredModel(t *testing.T) {
	stub := &chatStub{t: t, queue: []*openai.ChatCompletion{completion("gpt-4.1-mini", "ok")}}
	cfg := newStubConfig(config.ModelConfig{
		ModelName:   "gpt-4.1-mini",
		MaxTokens:   256,
		Temperature: 0.2,
		TopP:        0.9,
	})
	client := newStubbedClient(t, stub, WithConfigManager(cfg))

	_, err := client.GenerateContent(context.Background(), ai.Prompt{Name: "rename", Text: "some content"}, false)
	require.NoError(t, err)

	request := stub.onlySent()
	assert.Equal(t, shared.ChatModel("gpt-4.1-mini"), request.Model)
	require.True(t, request.MaxCompletionTokens.Valid())
	assert.Equal(t, int64(256), request.MaxCompletionTokens.Value)
	require.True(t, request.Temperature.Valid())
	assert.InDelta(t, 0.2, request.Temperature.Value, 1e-6)
}

func TestClient_GenerateContent_DefaultModel(t *testing.T) {
	stub := &chatStub{t: t, queue: []*openai.ChatCompletion{completion(shared.ChatModelGPT4oMini, "ok")}}
	client := newStubbedClient(t, stub, WithConfigManager(newStubConfig(config.ModelConfig{})))

	_, err := client.GenerateContent(context.Background(), ai.Prompt{Name: "rename", Text: "hi"}, false)
	require.NoError(t, err)

	assert.Equal(t, shared.ChatModelGPT4oMini, stub.onlySent().Model)
}

func TestClient_GenerateContent_NoChoices(t *testing.T) {
	empty := &openai.ChatCompletion{
		ID:     "empty",
		Object: constant.ChatCompletion(""),
		Model:  string(shared.ChatModelGPT4oMini),
	}
	stub := &chatStub{t: t, queue: []*openai.ChatCompletion{empty}}
	client := newStubbedClient(t, stub)

	_, err := client.GenerateContent(context.Background(), ai.Prompt{Name: "rename", Text: "hi"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestClient_GenerateContent_EmptyResponse(t *testing.T) {
	stub := &chatStub{t: t, queue: []*openai.ChatCompletion{completion(shared.ChatModelGPT4oMini, "   \n")}}
	client := newStubbedClient(t, stub)

	_, err := client.GenerateContent(context.Background(), ai.Prompt{Name: "rename", Text: "hi"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestClient_GenerateContent_TransportError(t *testing.T) {
	stub := &chatStub{t: t, fail: errors.New("status 500")}
	client := newStubbedClient(t, stub)

	_, err := client.GenerateContent(context.Background(), ai.Prompt{Name: "rename", Text: "hi"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai chat completion")
	assert.Contains(t, err.Error(), "status 500")
}

func TestClient_CountTokens(t *testing.T) {
	gen, err := NewClient()
	require.NoError(t, err)

	prompt := ai.Prompt{
		Name:        "tokens",
		Instruction: "You are concise.",
		Text:        "Provide a short summary about the Go programming language.",
		ModelName:   string(shared.ChatModelGPT4oMini),
		MaxTokens:   42,
	}

	count, err := gen.CountTokens(context.Background(), prompt, false)
	require.NoError(t, err)
	require.NotNil(t, count)
	assert.Greater(t, count.TotalTokens, int32(0))
	assert.Equal(t, count.TotalTokens, count.InputTokens)
}

func TestClient_GenerateContent_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	gen, err := NewClient()
	require.NoError(t, err)

	prompt := ai.Prompt{
		Name:      "missing-key",
		Text:      "Hello?",
		ModelName: string(shared.ChatModelGPT4oMini),
	}

	_, err = gen.GenerateContent(context.Background(), prompt, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestClient_GetStatus(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	gen, err := NewClient()
	require.NoError(t, err)

	status := gen.GetStatus()
	require.NotNil(t, status)
	assert.Equal(t, "openai", status.Backend)
	assert.False(t, status.Connected)
	assert.Contains(t, status.Message, "OPENAI_API_KEY")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	status = gen.GetStatus()
	assert.True(t, status.Connected)
	assert.Contains(t, status.Message, "OpenAI configured")
}
