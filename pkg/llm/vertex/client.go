package vertex

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/kcaldas/pdfgenie/pkg/ai"
	"github.com/kcaldas/pdfgenie/pkg/config"
	"github.com/kcaldas/pdfgenie/pkg/fileops"
	"github.com/kcaldas/pdfgenie/pkg/llm/shared"
	"github.com/kcaldas/pdfgenie/pkg/logging"
)

const defaultVertexModel = "gemini-2.0-flash"

// Client implements ai.Gen through Google's unified GenAI SDK against the
// Vertex AI backend. Authentication goes through Application Default
// Credentials instead of an API key.
type Client struct {
	Client      *genai.Client
	FileManager fileops.Manager
	Config      config.Manager

	// Tests intercept generation calls here.
	callGenerateContentFn func(ctx context.Context, modelName string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

	mu          sync.Mutex
	initialized bool
	initError   error
	projectID   string
	location    string
}

var _ ai.Gen = &Client{}

// NewClient builds the Vertex AI backend. The project is checked up front;
// the SDK client itself is created on first use.
func NewClient() (ai.Gen, error) {
	configManager := config.NewConfigManager()

	projectID, err := configManager.GetString("GOOGLE_CLOUD_PROJECT")
	if err != nil {
		return nil, fmt.Errorf("vertex backend not configured:\n" +
			"  export GOOGLE_CLOUD_PROJECT=your-project-id\n" +
			"  export GOOGLE_CLOUD_LOCATION=us-central1   (optional)\n" +
			"  Credentials are read through Application Default Credentials\n")
	}

	return &Client{
		FileManager: fileops.NewFileOpsManager(),
		Config:      configManager,
		projectID:   projectID,
		location:    configManager.GetStringWithDefault("GOOGLE_CLOUD_LOCATION", "us-central1"),
	}, nil
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

	cfg := &genai.ClientConfig{
		Project:  g.projectID,
		Location: g.location,
		Backend:  genai.BackendVertexAI,
	}
	cfg.HTTPOptions.Headers = ai.DefaultHTTPHeaders()

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		g.initError = fmt.Errorf("error creating Vertex AI client: %w", err)
		return g.initError
	}

	g.Client = client
	return nil
}

func (g *Client) GenerateContent(ctx context.Context, p ai.Prompt, debug bool, args ...string) (string, error) {
	return g.GenerateContentAttr(ctx, p, debug, ai.StringsToAttr(args))
}

func (g *Client) GenerateContentAttr(ctx context.Context, prompt ai.Prompt, debug bool, attrs []ai.Attr) (string, error) {
	if err := g.ensureInitialized(ctx); err != nil {
		return "", err
	}

	p, err := shared.RenderPromptWithDebug(g.FileManager, prompt, debug, attrs)
	if err != nil {
		return "", err
	}

	return g.generate(ctx, *p)
}

func (g *Client) CountTokens(ctx context.Context, p ai.Prompt, debug bool, args ...string) (*ai.TokenCount, error) {
	return g.CountTokensAttr(ctx, p, debug, ai.StringsToAttr(args))
}

func (g *Client) CountTokensAttr(ctx context.Context, p ai.Prompt, debug bool, attrs []ai.Attr) (*ai.TokenCount, error) {
	if err := g.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	prompt, err := shared.RenderPromptWithDebug(g.FileManager, p, debug, attrs)
	if err != nil {
		return nil, err
	}

	return g.countPromptTokens(ctx, *prompt)
}

// GetStatus reports whether the backend has the configuration it needs.
func (g *Client) GetStatus() *ai.Status {
	cfg := g.Config.GetModelConfig()
	model := fmt.Sprintf("%s, Temperature: %.2f, Max Tokens: %d", g.pickModel(""), cfg.Temperature, cfg.MaxTokens)

	if g.projectID == "" {
		return &ai.Status{Model: model, Connected: false, Backend: "vertex", Message: "GOOGLE_CLOUD_PROJECT not configured"}
	}
	return &ai.Status{
		Model:     model,
		Connected: true,
		Backend:   "vertex",
		Message:   fmt.Sprintf("Vertex AI configured (project: %s, location: %s)", g.projectID, g.location),
	}
}

func (g *Client) generate(ctx context.Context, p ai.Prompt) (string, error) {
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
	return defaultVertexModel
}

func (g *Client) recordUsage(usage *genai.GenerateContentResponseUsageMetadata) {
	if usage == nil {
		return
	}

	logging.NewAPILogger("vertex").Debug("token usage",
		"input", usage.PromptTokenCount,
		"output", usage.CandidatesTokenCount,
		"total", usage.TotalTokenCount,
	)
}

func firstPositive(values ...float32) float32 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
