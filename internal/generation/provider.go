package generation

import "context"

// Request is one call to a text-generation provider. MaxTokens is already scaled by the mode's
// multiplier; TokenParam names the request field that carries it.
type Request struct {
	Prompt     string
	MaxTokens  int
	Model      string
	TokenParam string
}

// Provider generates text. Implementations return timeout or network AppErrors for transport
// failures, which are retried, and external_api AppErrors for rejected calls, which are not.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc struct {
	ProviderName string
	Fn           func(ctx context.Context, req Request) (string, error)
}

// Name implements Provider.
func (p ProviderFunc) Name() string { return p.ProviderName }

// Generate implements Provider.
func (p ProviderFunc) Generate(ctx context.Context, req Request) (string, error) {
	return p.Fn(ctx, req)
}
