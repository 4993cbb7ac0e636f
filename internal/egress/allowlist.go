package egress

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/jivzik/uigen/internal/llm"
)

// AllowlistRoundTripper only lets HTTPS requests through to named hosts.
// Literal IP hosts are always refused.
type AllowlistRoundTripper struct {
	Base      http.RoundTripper
	Allowlist map[string]bool
	// OnBlocked, when set, is called with the host of every refused request.
	OnBlocked func(host string)
}

func NewAllowlistRoundTripper(base http.RoundTripper, hosts []string) *AllowlistRoundTripper {
	allowlist := make(map[string]bool, len(hosts))
	for _, host := range hosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			allowlist[host] = true
		}
	}
	return &AllowlistRoundTripper{Base: base, Allowlist: allowlist}
}

// HostsFromURLs extracts hostnames from endpoint URLs, skipping unparsable ones.
func HostsFromURLs(endpoints ...string) []string {
	var hosts []string
	for _, endpoint := range endpoints {
		u, err := url.Parse(strings.TrimSpace(endpoint))
		if err != nil || u.Hostname() == "" {
			continue
		}
		hosts = append(hosts, u.Hostname())
	}
	return hosts
}

func (rt *AllowlistRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL == nil {
		return nil, rt.block("")
	}
	host := req.URL.Hostname()
	if req.URL.Scheme != "https" || host == "" || net.ParseIP(host) != nil {
		return nil, rt.block(host)
	}
	if !rt.Allowlist[strings.ToLower(host)] {
		return nil, rt.block(host)
	}
	base := rt.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

func (rt *AllowlistRoundTripper) block(host string) error {
	if rt.OnBlocked != nil {
		rt.OnBlocked(host)
	}
	return llm.ErrEgressBlocked
}
