package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/kcaldas/pdfgenie/pkg/ai"
	"github.com/kcaldas/pdfgenie/pkg/config"
	"github.com/kcaldas/pdfgenie/pkg/fileops"
	"github.com/kcaldas/pdfgenie/pkg/logging"
)

var (
	errNotConfigured        = errors.New("openai backend not configured")
	_                ai.Gen = (*Client)(nil)
)

// chatClient is the slice of the SDK surface the client needs, kept narrow
// so tests can stand in for it.
type chatClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client implements ai.Gen on the OpenAI Chat Completions API.
type Client struct {
	config      config.Manager
	fileManager fileops.Manager
	logger      logging.Logger

	sdk  *openai.Client
	chat chatClient

	mu    sync.Mutex
	ready bool
}

// Option adjusts how the client is assembled.
type Option func(*Client)

// WithConfigManager swaps in a different configuration source.
func WithConfigManager(m config.Manager) Option {
	return func(c *Client) { c.config = m }
}

// WithFileManager swaps in a different file manager.
func WithFileManager(m fileops.Manager) Option {
	return func(c *Client) { c.fileManager = m }
}

// WithLogger swaps in a different logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithChatClient swaps in a different completions transport, which is how
// tests intercept requests.
func WithChatClient(chat chatClient) Option {
	return func(c *Client) { c.chat = chat }
}

// NewClient builds the OpenAI backend. The SDK connection itself is not
// established until the first request needs it.
func NewClient(opts ...Option) (ai.Gen, error) {
	client := &Client{
		config:      config.NewConfigManager(),
		fileManager: fileops.NewFileOpsManager(),
		logger:      logging.NewAPILogger("openai"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// GenerateContent renders the prompt with key/value argument pairs and runs it.
func (c *Client) GenerateContent(ctx context.Context, prompt ai.Prompt, debug bool, args ...string) (string, error) {
	return c.GenerateContentAttr(ctx, prompt, debug, ai.StringsToAttr(args))
}

// GenerateContentAttr renders the prompt with structured attributes and runs it.
func (c *Client) GenerateContentAttr(ctx context.Context, prompt ai.Prompt, debug bool, attrs []ai.Attr) (string, error) {
	if err := c.ensureReady(); err != nil {
		return "", err
	}

	rendered, err := c.render(prompt, debug, attrs)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	return c.complete(ctx, *rendered)
}

// CountTokens estimates prompt token usage with key/value argument pairs.
func (c *Client) CountTokens(ctx context.Context, prompt ai.Prompt, debug bool, args ...string) (*ai.TokenCount, error) {
	return c.CountTokensAttr(ctx, prompt, debug, ai.StringsToAttr(args))
}

// CountTokensAttr estimates prompt token usage locally, so it works without
// an API key.
func (c *Client) CountTokensAttr(ctx context.Context, prompt ai.Prompt, debug bool, attrs []ai.Attr) (*ai.TokenCount, error) {
	rendered, err := c.render(prompt, debug, attrs)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	total, err := estimateChatTokens(chatRecords(*rendered), c.pickModel(rendered.ModelName))
	if err != nil {
		return nil, fmt.Errorf("counting tokens: %w", err)
	}

	return &ai.TokenCount{
		TotalTokens: int32(total),
		InputTokens: int32(total),
	}, nil
}

// GetStatus reports whether the backend has the configuration it needs.
func (c *Client) GetStatus() *ai.Status {
	cfg := c.config.GetModelConfig()
	model := fmt.Sprintf("%s, Temperature: %.2f, Max Tokens: %d", c.pickModel(""), cfg.Temperature, cfg.MaxTokens)

	if strings.TrimSpace(c.config.GetStringWithDefault("OPENAI_API_KEY", "")) == "" {
		return &ai.Status{
			Model:     model,
			Backend:   "openai",
			Connected: false,
			Message:   "OPENAI_API_KEY not configured",
		}
	}

	message := "OpenAI configured"
	if base := strings.TrimSpace(c.config.GetStringWithDefault("OPENAI_BASE_URL", "")); base != "" {
		message = fmt.Sprintf("OpenAI configured (custom endpoint: %s)", base)
	}

	return &ai.Status{
		Model:     model,
		Backend:   "openai",
		Connected: true,
		Message:   message,
	}
}

func (c *Client) ensureReady() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready {
		return nil
	}
	if c.chat != nil {
		c.ready = true
		return nil
	}

	key := strings.TrimSpace(c.config.GetStringWithDefault("OPENAI_API_KEY", ""))
	if key == "" {
		return fmt.Errorf("%w: please export OPENAI_API_KEY (and optionally OPENAI_BASE_URL or OPENAI_ORG_ID)", errNotConfigured)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithHeaderAdd(ai.ClientHeaderName, ai.ClientHeaderValue),
	}
	for _, extra := range []struct {
		env  string
		wrap func(string) option.RequestOption
	}{
		{"OPENAI_BASE_URL", option.WithBaseURL},
		{"OPENAI_ORG_ID", option.WithOrganization},
		{"OPENAI_PROJECT_ID", option.WithProject},
	} {
		if value := strings.TrimSpace(c.config.GetStringWithDefault(extra.env, "")); value != "" {
			opts = append(opts, extra.wrap(value))
		}
	}

	sdk := openai.NewClient(opts...)
	service := sdk.Chat.Completions
	c.sdk = &sdk
	c.chat = &service
	c.ready = true
	return nil
}

func (c *Client) complete(ctx context.Context, prompt ai.Prompt) (string, error) {
	model := c.pickModel(prompt.ModelName)

	resp, err := c.chat.New(ctx, c.newParams(prompt, model))
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	c.recordUsage(resp.Usage)

	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completion returned no choices")
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", errors.New("openai returned an empty response")
	}
	return out, nil
}

// pickModel prefers the prompt's model, then the configured one, then the
// stock default.
func (c *Client) pickModel(requested string) string {
	if strings.TrimSpace(requested) != "" {
		return requested
	}
	if configured := c.config.GetModelConfig().ModelName; strings.TrimSpace(configured) != "" {
		return configured
	}
	return string(shared.ChatModelGPT4oMini)
}

func (c *Client) newParams(prompt ai.Prompt, model string) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: chatMessages(prompt),
	}

	cfg := c.config.GetModelConfig()
	limit := prompt.MaxTokens
	if limit <= 0 {
		limit = cfg.MaxTokens
	}
	if limit > 0 {
		params.MaxCompletionTokens = openai.Int(int64(limit))
	}

	if !samplingSupported(model) {
		// Reasoning models reject explicit sampling parameters.
		if prompt.Temperature > 0 && prompt.Temperature != 1.0 {
			c.logger.Debug("temperature not supported for model; using default", "model", model)
		}
		if prompt.TopP > 0 && prompt.TopP != 1.0 {
			c.logger.Debug("top_p not supported for model; using default", "model", model)
		}
		return params
	}

	temp := prompt.Temperature
	if temp <= 0 {
		temp = cfg.Temperature
	}
	if temp <= 0 {
		return params
	}
	params.Temperature = openai.Float(float64(temp))

	topP := prompt.TopP
	if topP <= 0 || math.Abs(float64(topP)-1.0) <= 1e-6 {
		return params
	}
	if topPSupported(model) {
		params.TopP = openai.Float(float64(topP))
	} else {
		c.logger.Debug("top_p not supported for model; using default", "model", model)
	}
	return params
}

// chatMessages lays the prompt out as an optional system message followed by
// the user text.
func chatMessages(prompt ai.Prompt) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if instruction := strings.TrimSpace(prompt.Instruction); instruction != "" {
		messages = append(messages, openai.SystemMessage(instruction))
	}
	return append(messages, openai.UserMessage(strings.TrimSpace(prompt.Text)))
}

// chatRecords is the same layout in the role/content form the token
// estimator consumes.
func chatRecords(prompt ai.Prompt) []chatRecord {
	var records []chatRecord
	if instruction := strings.TrimSpace(prompt.Instruction); instruction != "" {
		records = append(records, chatRecord{Role: "system", Content: instruction})
	}
	return append(records, chatRecord{Role: "user", Content: strings.TrimSpace(prompt.Text)})
}

func (c *Client) render(prompt ai.Prompt, debug bool, attrs []ai.Attr) (*ai.Prompt, error) {
	if debug {
		if err := c.dumpYAML(fmt.Sprintf("%s-initial-prompt.yaml", prompt.Name), prompt); err != nil {
			return nil, err
		}
		if err := c.dumpYAML(fmt.Sprintf("%s-attrs.yaml", prompt.Name), attrs); err != nil {
			return nil, err
		}
	}

	rendered, err := ai.RenderPrompt(prompt, ai.AttrsToMap(attrs))
	if err != nil {
		return nil, fmt.Errorf("rendering template: %w", err)
	}

	if debug {
		if err := c.dumpYAML(fmt.Sprintf("%s-final-prompt.yaml", rendered.Name), rendered); err != nil {
			return nil, err
		}
	}

	return &rendered, nil
}

func (c *Client) dumpYAML(filename string, object interface{}) error {
	return c.fileManager.WriteObjectAsYAML(filepath.Join(os.TempDir(), "pdfgenie", filename), object)
}

func (c *Client) recordUsage(usage openai.CompletionUsage) {
	if usage.TotalTokens == 0 && usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
		return
	}

	c.logger.Debug("token usage",
		"input", usage.PromptTokens,
		"output", usage.CompletionTokens,
		"total", usage.TotalTokens,
	)

	if c.config.GetBoolWithDefault("PDFGENIE_TOKEN_DEBUG", false) {
		raw, _ := json.MarshalIndent(usage, "", "  ")
		c.logger.Info("raw token usage", "usage", string(raw))
	}
}

// samplingSupported reports whether the model takes explicit temperature and
// top_p values at all.
func samplingSupported(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	return !strings.HasPrefix(m, "o1") && !strings.HasPrefix(m, "o3") && !strings.HasPrefix(m, "o4")
}

func topPSupported(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	for _, prefix := range []string{"gpt-4o", "gpt-4-turbo", "gpt-4-", "gpt-3.5"} {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}
