package multiplexer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kcaldas/pdfgenie/pkg/ai"
)

// Factory creates the client for one backend.
type Factory func() (ai.Gen, error)

// provider is one registered backend with its lazily built client.
type provider struct {
	name   string
	build  Factory
	once   sync.Once
	client ai.Gen
	err    error
}

func (p *provider) get() (ai.Gen, error) {
	p.once.Do(func() {
		p.client, p.err = p.build()
	})
	return p.client, p.err
}

// Client implements ai.Gen over a set of named backends. The backend is
// chosen per prompt through Prompt.LLMProvider, alias names fold to their
// canonical backend, and each client is built on first use then reused.
type Client struct {
	providers map[string]*provider
	aliases   map[string]string
	def       string

	mu   sync.Mutex
	last string
}

// NewClient registers the given factories and aliases. Names are matched
// case-insensitively. An empty defaultProvider falls back to openai.
func NewClient(defaultProvider string, factories map[string]Factory, aliases map[string]string) (*Client, error) {
	if len(factories) == 0 {
		return nil, fmt.Errorf("multiplexer: no LLM factories registered")
	}

	providers := make(map[string]*provider, len(factories))
	for name, build := range factories {
		if build == nil {
			return nil, fmt.Errorf("multiplexer: factory for provider %q is nil", name)
		}
		key := strings.ToLower(name)
		providers[key] = &provider{name: key, build: build}
	}

	folded := make(map[string]string, len(aliases))
	for from, to := range aliases {
		if from == "" || to == "" {
			continue
		}
		folded[strings.ToLower(from)] = strings.ToLower(to)
	}

	def := strings.ToLower(defaultProvider)
	if def == "" {
		def = "openai"
	}
	if _, ok := providers[def]; !ok {
		if target, ok := folded[def]; ok {
			def = target
		}
	}
	if _, ok := providers[def]; !ok {
		return nil, fmt.Errorf("multiplexer: unsupported default provider %q", defaultProvider)
	}

	return &Client{providers: providers, aliases: folded, def: def}, nil
}

// WarmUp builds the named backend now so configuration problems surface
// before any work starts. An empty name warms the default backend.
func (c *Client) WarmUp(name string) error {
	_, err := c.pick(name)
	return err
}

// DefaultProvider returns the canonical name of the default backend.
func (c *Client) DefaultProvider() string {
	return c.def
}

// Providers returns the canonical names of all registered backends, sorted.
func (c *Client) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GenerateContent implements ai.Gen on the backend the prompt names.
func (c *Client) GenerateContent(ctx context.Context, p ai.Prompt, debug bool, args ...string) (string, error) {
	client, err := c.pick(p.LLMProvider)
	if err != nil {
		return "", err
	}
	return client.GenerateContent(ctx, p, debug, args...)
}

// GenerateContentAttr implements ai.Gen on the backend the prompt names.
func (c *Client) GenerateContentAttr(ctx context.Context, p ai.Prompt, debug bool, attrs []ai.Attr) (string, error) {
	client, err := c.pick(p.LLMProvider)
	if err != nil {
		return "", err
	}
	return client.GenerateContentAttr(ctx, p, debug, attrs)
}

// CountTokens implements ai.Gen on the backend the prompt names.
func (c *Client) CountTokens(ctx context.Context, p ai.Prompt, debug bool, args ...string) (*ai.TokenCount, error) {
	client, err := c.pick(p.LLMProvider)
	if err != nil {
		return nil, err
	}
	return client.CountTokens(ctx, p, debug, args...)
}

// CountTokensAttr implements ai.Gen on the backend the prompt names.
func (c *Client) CountTokensAttr(ctx context.Context, p ai.Prompt, debug bool, attrs []ai.Attr) (*ai.TokenCount, error) {
	client, err := c.pick(p.LLMProvider)
	if err != nil {
		return nil, err
	}
	return client.CountTokensAttr(ctx, p, debug, attrs)
}

// GetStatus reports the most recently used backend, or the default one
// before any call has run.
func (c *Client) GetStatus() *ai.Status {
	c.mu.Lock()
	name := c.last
	c.mu.Unlock()
	if name == "" {
		name = c.def
	}

	p, err := c.resolve(name)
	if err != nil {
		return &ai.Status{Connected: false, Backend: name, Message: err.Error()}
	}
	client, err := p.get()
	if err != nil {
		return &ai.Status{Connected: false, Backend: p.name, Message: err.Error()}
	}
	return client.GetStatus()
}

// pick resolves a backend name, builds its client if needed, and records it
// as the last one used.
func (c *Client) pick(name string) (ai.Gen, error) {
	p, err := c.resolve(name)
	if err != nil {
		return nil, err
	}
	client, err := p.get()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.last = p.name
	c.mu.Unlock()
	return client, nil
}

func (c *Client) resolve(name string) (*provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = c.def
	}
	if p, ok := c.providers[key]; ok {
		return p, nil
	}
	if target, ok := c.aliases[key]; ok {
		if p, ok := c.providers[target]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("multiplexer: unsupported LLM provider %q", name)
}
