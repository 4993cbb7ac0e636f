package llm

import "context"

// RequestProfile overrides client defaults for the calls made under one
// context. Zero fields keep the client's own setting.
type RequestProfile struct {
	Model     string
	MaxTokens int
}

// Resolve returns the model and token budget to send, preferring the
// profile's non-zero fields over the given defaults.
func (p RequestProfile) Resolve(model string, maxTokens int) (string, int) {
	if p.Model != "" {
		model = p.Model
	}
	if p.MaxTokens > 0 {
		maxTokens = p.MaxTokens
	}
	return model, maxTokens
}

type profileKey struct{}

// WithRequestProfile layers profile over any profile already on ctx.
func WithRequestProfile(ctx context.Context, profile RequestProfile) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if outer, ok := RequestProfileFromContext(ctx); ok {
		profile.Model, profile.MaxTokens = profile.Resolve(outer.Model, outer.MaxTokens)
	}
	return context.WithValue(ctx, profileKey{}, profile)
}

func RequestProfileFromContext(ctx context.Context) (RequestProfile, bool) {
	if ctx == nil {
		return RequestProfile{}, false
	}
	profile, ok := ctx.Value(profileKey{}).(RequestProfile)
	return profile, ok
}
