package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sdk "github.com/anthropics/anthropic-sdk-go"
	sdkoption "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kcaldas/pdfgenie/pkg/ai"
	"github.com/kcaldas/pdfgenie/pkg/config"
	"github.com/kcaldas/pdfgenie/pkg/fileops"
	"github.com/kcaldas/pdfgenie/pkg/logging"
)

const (
	defaultClaudeModel = "claude-3-5-sonnet-20241022"

	// The Messages API requires max_tokens; this is the floor applied when
	// neither the prompt nor the configuration names one.
	defaultMaxTokens = 1024
)

var (
	errNotConfigured        = errors.New("anthropic backend not configured")
	_                ai.Gen = (*Client)(nil)
)

// messageClient is the slice of the SDK surface the client needs, kept
// narrow so tests can stand in for it.
type messageClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...sdkoption.RequestOption) (*sdk.Message, error)
	CountTokens(ctx context.Context, body sdk.MessageCountTokensParams, opts ...sdkoption.RequestOption) (*sdk.MessageTokensCount, error)
}

// Client implements ai.Gen on the Anthropic Messages API.
type Client struct {
	config      config.Manager
	fileManager fileops.Manager
	logger      logging.Logger

	apiClient *sdk.Client
	messages  messageClient

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

// WithMessageClient swaps in a different messages transport, which is how
// tests intercept requests.
func WithMessageClient(client messageClient) Option {
	return func(c *Client) { c.messages = client }
}

// NewClient builds the Anthropic backend. The SDK connection itself is not
// established until the first request needs it.
func NewClient(opts ...Option) (ai.Gen, error) {
	client := &Client{
		config:      config.NewConfigManager(),
		fileManager: fileops.NewFileOpsManager(),
		logger:      logging.NewAPILogger("anthropic"),
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

	return c.send(ctx, *rendered)
}

// CountTokens estimates prompt token usage with key/value argument pairs.
func (c *Client) CountTokens(ctx context.Context, prompt ai.Prompt, debug bool, args ...string) (*ai.TokenCount, error) {
	return c.CountTokensAttr(ctx, prompt, debug, ai.StringsToAttr(args))
}

// CountTokensAttr asks the dedicated counting endpoint, so the result
// matches the server's own accounting.
func (c *Client) CountTokensAttr(ctx context.Context, prompt ai.Prompt, debug bool, attrs []ai.Attr) (*ai.TokenCount, error) {
	if err := c.ensureReady(); err != nil {
		return nil, err
	}

	rendered, err := c.render(prompt, debug, attrs)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	result, err := c.messages.CountTokens(ctx, c.newCountParams(*rendered))
	if err != nil {
		return nil, fmt.Errorf("anthropic count tokens: %w", err)
	}

	return &ai.TokenCount{
		TotalTokens: int32(result.InputTokens),
		InputTokens: int32(result.InputTokens),
	}, nil
}

// GetStatus reports whether the backend has the configuration it needs.
func (c *Client) GetStatus() *ai.Status {
	cfg := c.config.GetModelConfig()
	model := fmt.Sprintf("%s, Temperature: %.2f, Max Tokens: %d", c.pickModel(""), cfg.Temperature, cfg.MaxTokens)

	if strings.TrimSpace(c.config.GetStringWithDefault("ANTHROPIC_API_KEY", "")) == "" {
		return &ai.Status{
			Model:     model,
			Backend:   "anthropic",
			Connected: false,
			Message:   "ANTHROPIC_API_KEY not configured",
		}
	}

	message := "Anthropic configured"
	if base := strings.TrimSpace(c.config.GetStringWithDefault("ANTHROPIC_BASE_URL", "")); base != "" {
		message = fmt.Sprintf("Anthropic configured (custom endpoint: %s)", base)
	}

	return &ai.Status{
		Model:     model,
		Backend:   "anthropic",
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
	if c.messages != nil {
		c.ready = true
		return nil
	}

	key := strings.TrimSpace(c.config.GetStringWithDefault("ANTHROPIC_API_KEY", ""))
	if key == "" {
		return fmt.Errorf("%w: please export ANTHROPIC_API_KEY (and optionally ANTHROPIC_BASE_URL or ANTHROPIC_AUTH_TOKEN)", errNotConfigured)
	}

	opts := []sdkoption.RequestOption{
		sdkoption.WithAPIKey(key),
		sdkoption.WithHeaderAdd(ai.ClientHeaderName, ai.ClientHeaderValue),
	}
	if base := strings.TrimSpace(c.config.GetStringWithDefault("ANTHROPIC_BASE_URL", "")); base != "" {
		opts = append(opts, sdkoption.WithBaseURL(base))
	}
	if token := strings.TrimSpace(c.config.GetStringWithDefault("ANTHROPIC_AUTH_TOKEN", "")); token != "" {
		opts = append(opts, sdkoption.WithAuthToken(token))
	}

	client := sdk.NewClient(opts...)
	service := client.Messages
	c.apiClient = &client
	c.messages = &service
	c.ready = true
	return nil
}

func (c *Client) send(ctx context.Context, prompt ai.Prompt) (string, error) {
	resp, err := c.messages.New(ctx, c.newParams(prompt))
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	c.recordUsage(resp.Usage)

	out := strings.TrimSpace(joinTextBlocks(resp))
	if out == "" {
		return "", errors.New("anthropic returned an empty response")
	}
	return out, nil
}

func (c *Client) newParams(prompt ai.Prompt) sdk.MessageNewParams {
	cfg := c.config.GetModelConfig()

	limit := prompt.MaxTokens
	if limit <= 0 {
		limit = cfg.MaxTokens
	}
	if limit <= 0 {
		limit = defaultMaxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.pickModel(prompt.ModelName)),
		MaxTokens: int64(limit),
		Messages:  userMessages(prompt),
	}
	if blocks := systemBlocks(prompt); len(blocks) > 0 {
		params.System = blocks
	}

	if temp := firstPositive(prompt.Temperature, cfg.Temperature); temp > 0 {
		params.Temperature = sdk.Float(float64(temp))
	}
	if topP := firstPositive(prompt.TopP, cfg.TopP); topP > 0 {
		params.TopP = sdk.Float(float64(topP))
	}

	return params
}

func (c *Client) newCountParams(prompt ai.Prompt) sdk.MessageCountTokensParams {
	params := sdk.MessageCountTokensParams{
		Model:    sdk.Model(c.pickModel(prompt.ModelName)),
		Messages: userMessages(prompt),
	}
	if blocks := systemBlocks(prompt); len(blocks) > 0 {
		params.System = sdk.MessageCountTokensParamsSystemUnion{
			OfTextBlockArray: blocks,
		}
	}
	return params
}

// joinTextBlocks concatenates the text blocks of a response, newline
// separated, skipping non-text and blank blocks.
func joinTextBlocks(resp *sdk.Message) string {
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type != "text" || strings.TrimSpace(block.Text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(block.Text)
	}
	return b.String()
}

func systemBlocks(prompt ai.Prompt) []sdk.TextBlockParam {
	if strings.TrimSpace(prompt.Instruction) == "" {
		return nil
	}
	return []sdk.TextBlockParam{{Text: prompt.Instruction}}
}

func userMessages(prompt ai.Prompt) []sdk.MessageParam {
	text := strings.TrimSpace(prompt.Text)
	return []sdk.MessageParam{
		sdk.NewUserMessage(sdk.NewTextBlock(text)),
	}
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
	return defaultClaudeModel
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

func (c *Client) recordUsage(usage sdk.Usage) {
	if usage.InputTokens == 0 && usage.OutputTokens == 0 {
		return
	}

	c.logger.Debug("token usage",
		"input", usage.InputTokens,
		"output", usage.OutputTokens,
		"total", usage.InputTokens+usage.OutputTokens,
	)

	if c.config.GetBoolWithDefault("PDFGENIE_TOKEN_DEBUG", false) {
		raw, _ := json.MarshalIndent(usage, "", "  ")
		c.logger.Info("raw token usage", "usage", string(raw))
	}
}

func firstPositive(values ...float32) float32 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
