package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/kcaldas/pdfgenie/pkg/ai"
	"github.com/kcaldas/pdfgenie/pkg/config"
	"github.com/kcaldas/pdfgenie/pkg/fileops"
	"github.com/kcaldas/pdfgenie/pkg/logging"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Client implements ai.Gen through Google's unified GenAI SDK against the
// Gemini API backend.
type Client struct {
	Client      *genai.Client
	FileManager fileops.Manager
	Config      config.Manager

	// Tests intercept generation calls here.
	callGenerateContentFn func(ctx context.Context, modelName string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

	mu          sync.Mutex
	initialized bool
	initError   error
}

var _ ai.Gen = &Client{}

// NewClient builds the Gemini backend. The key is checked up front; the SDK
// client itself is created on first use.
func NewClient() (ai.Gen, error) {
	configManager := config.NewConfigManager()

	if configManager.GetStringWithDefault("GEMINI_API_KEY", "") == "" {
		return nil, fmt.Errorf("gemini backend not configured:\n" +
			"  export GEMINI_API_KEY=your-api-key\n" +
			"  Get your API key from: https://aistudio.google.com/apikey\n")
	}

	return &Client{
		FileManager: fileops.NewFileOpsManager(),
		Config:      configManager,
	}, nil
}

func (g *Client) GenerateContent(ctx context.Context, p ai.Prompt, debug bool, args ...string) (string, error) {
	return g.GenerateContentAttr(ctx, p, debug, ai.StringsToAttr(args))
}

func (g *Client) GenerateContentAttr(ctx context.Context, p ai.Prompt, debug bool, attrs []ai.Attr) (string, error) {
	if err := g.ensureInitialized(ctx); err != nil {
		return "", err
	}

	rendered, err := g.render(p, debug, attrs)
	if err != nil {
		return "", fmt.Errorf("error rendering prompt: %w", err)
	}

	return g.generate(ctx, *rendered, debug)
}

func (g *Client) CountTokens(ctx context.Context, p ai.Prompt, debug bool, args ...string) (*ai.TokenCount, error) {
	return g.CountTokensAttr(ctx, p, debug, ai.StringsToAttr(args))
}

func (g *Client) CountTokensAttr(ctx context.Context, p ai.Prompt, debug bool, attrs []ai.Attr) (*ai.TokenCount, error) {
	if err := g.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	rendered, err := g.render(p, debug, attrs)
	if err != nil {
		return nil, fmt.Errorf("error rendering prompt: %w", err)
	}

	return g.countPromptTokens(ctx, *rendered)
}

// GetStatus reports whether the backend has the configuration it needs.
func (g *Client) GetStatus() *ai.Status {
	cfg := g.Config.GetModelConfig()
	model := fmt.Sprintf("%s, Temperature: %.2f, Max Tokens: %d", g.pickModel(""), cfg.Temperature, cfg.MaxTokens)

	if g.Config.GetStringWithDefault("GEMINI_API_KEY", "") == "" {
		return &ai.Status{Model: model, Connected: false, Backend: "gemini", Message: "GEMINI_API_KEY not configured"}
	}
	return &ai.Status{Model: model, Connected: true, Backend: "gemini", Message: "Gemini API configured"}
}

// ensureInitialized creates the SDK client once; later calls return the
// cached outcome.
func (g *Client) ensureInitialized(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.initialized {
		return g.initError
	}
	g.initialized = true

	apiKey, err := g.Config.GetString("GEMINI_API_KEY")
	if err != nil {
		g.initError = fmt.Errorf("GEMINI_API_KEY not configured: %w", err)
		return g.initError
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	cfg.HTTPOptions.Headers = ai.DefaultHTTPHeaders()

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		g.initError = fmt.Errorf("error creating Gemini API client: %w", err)
		return g.initError
	}

	g.Client = client
	return nil
}

func (g *Client) generate(ctx context.Context, p ai.Prompt, debug bool) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(p.Text)}, genai.RoleUser),
	}

	result, err := g.doGenerateContent(ctx, g.pickModel(p.ModelName), contents, g.generationConfig(p))
	if err != nil {
		return "", fmt.Errorf("error generating content: %w", err)
	}
	g.recordUsage(result.UsageMetadata)

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("no response candidates")
	}
	candidate := result.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("no content in response candidate")
	}

	response := strings.TrimSpace(joinParts(candidate.Content))
	if response == "" {
		logging.NewAPILogger("genai").Debug("empty response received despite having candidates",
			"candidates", len(result.Candidates),
			"content_parts", len(candidate.Content.Parts))
		return "", fmt.Errorf("no usable content in response candidates")
	}

	return response, nil
}

func (g *Client) generationConfig(p ai.Prompt) *genai.GenerateContentConfig {
	genConfig := &genai.GenerateContentConfig{CandidateCount: 1}

	if p.Instruction != "" {
		parts := []*genai.Part{genai.NewPartFromText(p.Instruction)}
		genConfig.SystemInstruction = genai.NewContentFromParts(parts, genai.RoleUser)
	}

	cfg := g.Config.GetModelConfig()

	limit := p.MaxTokens
	if limit <= 0 {
		limit = cfg.MaxTokens
	}
	if limit > 0 {
		genConfig.MaxOutputTokens = limit
	}

	if temp := firstPositive(p.Temperature, cfg.Temperature); temp > 0 {
		genConfig.Temperature = &temp
	}
	if topP := firstPositive(p.TopP, cfg.TopP); topP > 0 {
		genConfig.TopP = &topP
	}

	return genConfig
}

func (g *Client) doGenerateContent(ctx context.Context, modelName string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if g.callGenerateContentFn != nil {
		return g.callGenerateContentFn(ctx, modelName, contents, config)
	}
	return g.Client.Models.GenerateContent(ctx, modelName, contents, config)
}

func (g *Client) countPromptTokens(ctx context.Context, p ai.Prompt) (*ai.TokenCount, error) {
	userContent := genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(p.Text)}, genai.RoleUser)

	contents := []*genai.Content{userContent}
	if p.Instruction != "" {
		// The counting endpoint has no system slot; instructions count as
		// user content.
		systemContent := genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(p.Instruction)}, genai.RoleUser)
		contents = []*genai.Content{systemContent, userContent}
	}

	countResp, err := g.Client.Models.CountTokens(ctx, g.pickModel(p.ModelName), contents, nil)
	if err != nil {
		return nil, fmt.Errorf("error counting tokens: %w", err)
	}

	return &ai.TokenCount{
		TotalTokens: countResp.TotalTokens,
		InputTokens: countResp.TotalTokens,
	}, nil
}

// joinParts concatenates the plain text parts of a candidate. Thought parts
// produced by thinking models are excluded.
func joinParts(content *genai.Content) string {
	var texts []string
	for _, part := range content.Parts {
		if part.Text == "" || part.Thought {
			continue
		}
		texts = append(texts, part.Text)
	}
	return strings.Join(texts, "")
}

// pickModel prefers the prompt's model, then the configured one, then the
// stock default.
func (g *Client) pickModel(requested string) string {
	if strings.TrimSpace(requested) != "" {
		return requested
	}
	if configured := g.Config.GetModelConfig().ModelName; strings.TrimSpace(configured) != "" {
		return configured
	}
	return defaultGeminiModel
}

func (g *Client) render(prompt ai.Prompt, debug bool, attrs []ai.Attr) (*ai.Prompt, error) {
	if debug {
		if err := g.dumpYAML(fmt.Sprintf("%s-initial-prompt.yaml", prompt.Name), prompt); err != nil {
			return nil, err
		}
		if err := g.dumpYAML(fmt.Sprintf("%s-attrs.yaml", prompt.Name), attrs); err != nil {
			return nil, err
		}
	}

	rendered, err := ai.RenderPrompt(prompt, ai.AttrsToMap(attrs))
	if err != nil {
		return nil, fmt.Errorf("error rendering prompt: %w", err)
	}

	if debug {
		if err := g.dumpYAML(fmt.Sprintf("%s-final-prompt.yaml", rendered.Name), rendered); err != nil {
			return nil, err
		}
	}

	return &rendered, nil
}

func (g *Client) dumpYAML(filename string, object interface{}) error {
	return g.FileManager.WriteObjectAsYAML(filepath.Join(os.TempDir(), "pdfgenie", filename), object)
}

func (g *Client) recordUsage(usage *genai.GenerateContentResponseUsageMetadata) {
	if usage == nil {
		return
	}

	logger := logging.NewAPILogger("genai")
	logger.Debug("token usage",
		"input", usage.PromptTokenCount,
		"output", usage.CandidatesTokenCount,
		"total", usage.TotalTokenCount,
	)

	if g.Config.GetBoolWithDefault("PDFGENIE_TOKEN_DEBUG", false) {
		if raw, err := json.MarshalIndent(usage, "", "  "); err == nil {
			logger.Info("raw token usage", "usage", string(raw))
		}
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
