package schema

import (
	"net/url"
	"strings"
)

// ParseNamespace validates a namespace name.
func ParseNamespace(value string) (Namespace, error) {
	switch Namespace(strings.ToLower(strings.TrimSpace(value))) {
	case NamespaceGuest:
		return NamespaceGuest, nil
	case NamespaceAuthenticated:
		return NamespaceAuthenticated, nil
	default:
		return "", ErrInvalidNamespace
	}
}

// NormalizeAddress turns address-bar text into a loadable URL.
// Text starting with a recognized scheme is kept; anything else becomes a search
// query with the raw text percent-encoded.
func NormalizeAddress(input string, cfg SessionConfig) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ErrEmptyAddress
	}
	if hasScheme(trimmed, cfg.Schemes) {
		return trimmed, nil
	}
	return cfg.SearchURL + encodeQueryComponent(trimmed), nil
}

func hasScheme(value string, schemes []string) bool {
	idx := strings.IndexByte(value, ':')
	if idx <= 0 {
		return false
	}
	scheme := strings.ToLower(value[:idx])
	for _, allowed := range schemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// componentUnescaper restores the characters a URI component leaves unescaped
// but url.QueryEscape does not, and writes spaces as %20.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func encodeQueryComponent(value string) string {
	return componentUnescaper.Replace(url.QueryEscape(value))
}

// NormalizeEmail trims and lower-cases an account email and checks its shape.
func NormalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" || strings.ContainsAny(normalized, " \t\r\n") {
		return "", ErrInvalidEmail
	}
	at := strings.IndexByte(normalized, '@')
	if at <= 0 || at != strings.LastIndexByte(normalized, '@') || at == len(normalized)-1 {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}
