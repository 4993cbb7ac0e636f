package llm

import (
	"context"
	"testing"
)

func TestRequestProfileResolve(t *testing.T) {
	model, tokens := RequestProfile{}.Resolve("claude-sonnet-4-5", 8192)
	if model != "claude-sonnet-4-5" || tokens != 8192 {
		t.Fatalf("zero profile should keep defaults, got %s/%d", model, tokens)
	}
	model, tokens = RequestProfile{Model: "claude-haiku-4-5", MaxTokens: 512}.Resolve("claude-sonnet-4-5", 8192)
	if model != "claude-haiku-4-5" || tokens != 512 {
		t.Fatalf("expected overrides, got %s/%d", model, tokens)
	}
}

func TestWithRequestProfileLayers(t *testing.T) {
	ctx := WithRequestProfile(context.Background(), RequestProfile{Model: "claude-haiku-4-5"})
	ctx = WithRequestProfile(ctx, RequestProfile{MaxTokens: 4000})

	profile, ok := RequestProfileFromContext(ctx)
	if !ok {
		t.Fatalf("expected request profile in context")
	}
	if profile.Model != "claude-haiku-4-5" || profile.MaxTokens != 4000 {
		t.Fatalf("expected both layers to survive, got %+v", profile)
	}
}

func TestRequestProfileMissingOrNilContext(t *testing.T) {
	if profile, ok := RequestProfileFromContext(context.Background()); ok {
		t.Fatalf("expected missing profile, got %+v", profile)
	}
	ctx := WithRequestProfile(nil, RequestProfile{MaxTokens: 1})
	if profile, _ := RequestProfileFromContext(ctx); profile.MaxTokens != 1 {
		t.Fatalf("expected max tokens 1, got %+v", profile)
	}
}
