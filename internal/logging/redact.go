package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// sensitive lists attribute and map keys whose values never reach a log.
var sensitive = []string{
	"password",
	"api_key",
	"apikey",
	"anthropic_api_key",
	"jwt_secret",
	"secret",
	"token",
	"auth-token",
	"authorization",
	"cookie",
	"set-cookie",
}

func isSensitive(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, s := range sensitive {
		if key == s {
			return true
		}
	}
	return false
}

// RedactValue keeps the last four characters of a secret, and the scheme of
// a bearer credential.
func RedactValue(value string) string {
	value = strings.TrimSpace(value)
	if scheme, rest, ok := strings.Cut(value, " "); ok && strings.EqualFold(scheme, "bearer") {
		return "Bearer " + tail(strings.TrimSpace(rest))
	}
	return tail(value)
}

func tail(v string) string {
	switch {
	case v == "":
		return ""
	case len(v) <= 4:
		return "****"
	default:
		return "****" + v[len(v)-4:]
	}
}

// RedactAny returns a copy of maps and slices with sensitive keys masked at
// any depth. Other values are returned unchanged.
func RedactAny(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			if isSensitive(key) {
				out[key] = RedactValue(fmt.Sprint(inner))
			} else {
				out[key] = RedactAny(inner)
			}
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(v))
		for key, inner := range v {
			if isSensitive(key) {
				inner = RedactValue(inner)
			}
			out[key] = inner
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = RedactAny(v[i])
		}
		return out
	}
	return value
}

// replaceAttr is the slog hook that masks sensitive top-level and grouped
// attributes written by any handler built in this package.
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if isSensitive(a.Key) && a.Value.Kind() != slog.KindGroup {
		return slog.String(a.Key, RedactValue(a.Value.String()))
	}
	if a.Value.Kind() == slog.KindAny {
		if redacted := RedactAny(a.Value.Any()); redacted != nil {
			return slog.Any(a.Key, redacted)
		}
	}
	return a
}
