package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kcaldas/pdfgenie/pkg/ai"
	"github.com/kcaldas/pdfgenie/pkg/config"
	"github.com/kcaldas/pdfgenie/pkg/fileops"
	"github.com/kcaldas/pdfgenie/pkg/logging"
)

const (
	defaultBaseURL = "http://127.0.0.1:11434"
	chatEndpoint   = "/api/chat"
)

var (
	errNoBaseURL     = errors.New("ollama base URL not configured")
	errEmptyResponse = errors.New("ollama returned an empty response")

	_ ai.Gen = (*Client)(nil)
)

// httpDoer is the one http.Client method the client depends on.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ai.Gen against a local or remote Ollama server. There is
// no SDK; requests go straight to the REST API.
type Client struct {
	config      config.Manager
	fileManager fileops.Manager
	logger      logging.Logger

	httpClient httpDoer
	baseURL    string
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

// WithHTTPClient swaps in a different transport, which is how tests
// intercept requests.
func WithHTTPClient(client httpDoer) Option {
	return func(c *Client) { c.httpClient = client }
}

// WithBaseURL overrides the server address.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if strings.TrimSpace(url) != "" {
			c.baseURL = normalizeBaseURL(url)
		}
	}
}

// NewClient builds the Ollama backend. The server address comes from the
// options, the environment, or the stock localhost default, in that order.
func NewClient(opts ...Option) (ai.Gen, error) {
	client := &Client{
		config:      config.NewConfigManager(),
		fileManager: fileops.NewFileOpsManager(),
		logger:      logging.NewAPILogger("ollama"),
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}

	if strings.TrimSpace(client.baseURL) == "" {
		client.baseURL = client.baseURLFromEnv()
	}
	if strings.TrimSpace(client.baseURL) == "" {
		return nil, errNoBaseURL
	}

	return client, nil
}

// GenerateContent renders the prompt with key/value argument pairs and runs it.
func (c *Client) GenerateContent(ctx context.Context, prompt ai.Prompt, debug bool, args ...string) (string, error) {
	return c.GenerateContentAttr(ctx, prompt, debug, ai.StringsToAttr(args))
}

// GenerateContentAttr renders the prompt with structured attributes and runs it.
func (c *Client) GenerateContentAttr(ctx context.Context, prompt ai.Prompt, debug bool, attrs []ai.Attr) (string, error) {
	rendered, err := c.render(prompt, debug, attrs)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	request, err := c.newRequest(*rendered)
	if err != nil {
		return "", err
	}

	response, err := c.post(ctx, request)
	if err != nil {
		return "", err
	}
	c.recordUsage(response)

	content := strings.TrimSpace(response.Message.Content)
	if content == "" {
		return "", errEmptyResponse
	}
	return content, nil
}

// CountTokens estimates prompt token usage with key/value argument pairs.
func (c *Client) CountTokens(ctx context.Context, prompt ai.Prompt, debug bool, args ...string) (*ai.TokenCount, error) {
	return c.CountTokensAttr(ctx, prompt, debug, ai.StringsToAttr(args))
}

// CountTokensAttr estimates token usage. Ollama has no counting endpoint, so
// this issues a chat request with num_predict forced to zero and reads the
// prompt evaluation count off the response.
func (c *Client) CountTokensAttr(ctx context.Context, prompt ai.Prompt, debug bool, attrs []ai.Attr) (*ai.TokenCount, error) {
	rendered, err := c.render(prompt, debug, attrs)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	request, err := c.newRequest(*rendered)
	if err != nil {
		return nil, err
	}
	if request.Options == nil {
		request.Options = map[string]any{}
	}
	request.Options["num_predict"] = 0

	response, err := c.post(ctx, request)
	if err != nil {
		return nil, err
	}

	count := usageFrom(response)
	c.logger.Debug("token usage",
		"input", count.InputTokens,
		"output", count.OutputTokens,
		"total", count.TotalTokens,
	)
	return count, nil
}

// GetStatus reports the configured model and target endpoint.
func (c *Client) GetStatus() *ai.Status {
	cfg := c.config.GetModelConfig()
	return &ai.Status{
		Model:     fmt.Sprintf("%s, Temperature: %.2f, Max Tokens: %d", cfg.ModelName, cfg.Temperature, cfg.MaxTokens),
		Backend:   "ollama",
		Connected: true,
		Message:   fmt.Sprintf("Ollama configured (endpoint: %s)", c.baseURL),
	}
}

func (c *Client) newRequest(prompt ai.Prompt) (chatRequest, error) {
	model := c.pickModel(prompt.ModelName)
	if strings.TrimSpace(model) == "" {
		return chatRequest{}, errors.New("no Ollama model configured")
	}

	return chatRequest{
		Model:    model,
		Messages: chatMessages(prompt),
		Stream:   false,
		Options:  c.modelOptions(prompt),
	}, nil
}

// modelOptions collects the generation settings, prompt values first and
// configured values as fallback. Nil when nothing is set.
func (c *Client) modelOptions(prompt ai.Prompt) map[string]any {
	cfg := c.config.GetModelConfig()
	opts := map[string]any{}

	if limit := firstPositive32(prompt.MaxTokens, cfg.MaxTokens); limit > 0 {
		opts["num_predict"] = limit
	}
	if temp := firstPositiveF32(prompt.Temperature, cfg.Temperature); temp > 0 {
		opts["temperature"] = temp
	}
	if topP := firstPositiveF32(prompt.TopP, cfg.TopP); topP > 0 && topP < 1.0 {
		opts["top_p"] = topP
	}

	if len(opts) == 0 {
		return nil
	}
	return opts
}

func chatMessages(prompt ai.Prompt) []chatMessage {
	var messages []chatMessage
	if instruction := strings.TrimSpace(prompt.Instruction); instruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: instruction})
	}
	return append(messages, chatMessage{Role: "user", Content: strings.TrimSpace(prompt.Text)})
}

func (c *Client) post(ctx context.Context, request chatRequest) (*chatResponse, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ai.ClientHeaderName, ai.ClientHeaderValue)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama chat request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading ollama response: %w", err)
	}
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("ollama chat request failed: status %s: %s", res.Status, string(body))
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decoding ollama response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", response.Error)
	}
	return &response, nil
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

func (c *Client) recordUsage(response *chatResponse) {
	count := usageFrom(response)
	if count == nil {
		return
	}
	c.logger.Debug("token usage",
		"input", count.InputTokens,
		"output", count.OutputTokens,
		"total", count.TotalTokens,
	)
}

func usageFrom(response *chatResponse) *ai.TokenCount {
	if response == nil {
		return nil
	}
	input := int32(response.PromptEvalCount)
	output := int32(response.EvalCount)
	return &ai.TokenCount{
		TotalTokens:  input + output,
		InputTokens:  input,
		OutputTokens: output,
	}
}

// baseURLFromEnv resolves the server address from PDFGENIE_OLLAMA_BASE_URL,
// then OLLAMA_HOST, then the stock localhost default.
func (c *Client) baseURLFromEnv() string {
	for _, key := range []string{"PDFGENIE_OLLAMA_BASE_URL", "OLLAMA_HOST"} {
		if raw := strings.TrimSpace(c.config.GetStringWithDefault(key, "")); raw != "" {
			return normalizeBaseURL(raw)
		}
	}
	return defaultBaseURL
}

// normalizeBaseURL strips trailing slashes and defaults to http when the
// address carries no scheme.
func normalizeBaseURL(raw string) string {
	url := strings.TrimRight(strings.TrimSpace(raw), "/")
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return "http://" + url
}

func (c *Client) pickModel(requested string) string {
	if strings.TrimSpace(requested) != "" {
		return requested
	}
	return strings.TrimSpace(c.config.GetModelConfig().ModelName)
}

func firstPositive32(values ...int32) int32 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositiveF32(values ...float32) float32 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
