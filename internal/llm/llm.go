package llm

import (
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/zhalslar/portrayal-go/internal/config"
)

// NewClient creates a new OpenAI-compatible client for one provider
func NewClient(cfg config.ProviderConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

// Provider pairs a client with the model it should be called with.
type Provider struct {
	ID     string
	Model  string
	Client Client
}

// Registry resolves the provider for an invocation: a configured
// specific_provider_id when set, otherwise the first (default) entry.
type Registry struct {
	providers map[string]Provider
	defaultID string
}

// NewRegistry builds a registry from the configured provider list.
func NewRegistry(cfg config.LLMConfig) (*Registry, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no llm providers configured")
	}
	r := &Registry{providers: make(map[string]Provider, len(cfg.Providers))}
	for i, pc := range cfg.Providers {
		id := pc.ID
		if id == "" {
			id = fmt.Sprintf("provider-%d", i)
		}
		if i == 0 {
			r.defaultID = id
		}
		r.providers[id] = Provider{ID: id, Model: pc.Model, Client: NewClient(pc)}
	}
	return r, nil
}

// Get returns the provider for id, or the default when id is empty.
func (r *Registry) Get(id string) (Provider, error) {
	if id == "" {
		id = r.defaultID
	}
	p, ok := r.providers[id]
	if !ok {
		return Provider{}, fmt.Errorf("llm provider not found: %s", id)
	}
	return p, nil
}

// Register adds or replaces a provider; tests use it to inject mocks.
func (r *Registry) Register(p Provider) {
	if len(r.providers) == 0 {
		r.providers = make(map[string]Provider)
	}
	if r.defaultID == "" {
		r.defaultID = p.ID
	}
	r.providers[p.ID] = p
}
