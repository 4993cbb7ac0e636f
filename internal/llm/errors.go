package llm

import "errors"

// Provider failures. Clients wrap these with the upstream detail.
var (
	ErrUnauthorized  = errors.New("provider rejected the API key")
	ErrUnavailable   = errors.New("provider unavailable")
	ErrEgressBlocked = errors.New("egress blocked")
	ErrRateLimited   = errors.New("provider rate limited")
)
