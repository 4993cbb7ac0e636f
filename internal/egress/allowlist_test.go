package egress

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jivzik/uigen/internal/llm"
)

type okTransport struct{ calls int }

func (o *okTransport) RoundTrip(*http.Request) (*http.Response, error) {
	o.calls++
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func TestAllowlistRoundTripper(t *testing.T) {
	base := &okTransport{}
	var blocked []string
	rt := NewAllowlistRoundTripper(base, HostsFromURLs("https://api.anthropic.com", "::bad::"))
	rt.OnBlocked = func(host string) { blocked = append(blocked, host) }

	cases := map[string]bool{
		"https://api.anthropic.com/v1/messages": true,
		"https://API.ANTHROPIC.COM/v1/models":   true,
		"http://api.anthropic.com/v1/messages":  false,
		"https://evil.example.com/v1/messages":  false,
		"https://127.0.0.1/v1/messages":         false,
	}
	for target, allowed := range cases {
		req, err := http.NewRequest(http.MethodGet, target, nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		resp, err := rt.RoundTrip(req)
		if allowed {
			if err != nil {
				t.Fatalf("%s: expected allowed, got %v", target, err)
			}
			resp.Body.Close()
			continue
		}
		if !errors.Is(err, llm.ErrEgressBlocked) {
			t.Fatalf("%s: expected egress blocked, got %v", target, err)
		}
	}
	if base.calls != 2 {
		t.Fatalf("expected 2 forwarded requests, got %d", base.calls)
	}
	if len(blocked) != 3 {
		t.Fatalf("expected 3 blocked callbacks, got %v", blocked)
	}
}
