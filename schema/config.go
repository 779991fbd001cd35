package schema

import (
	"errors"
	"net/url"
	"strings"
)

// DefaultHomeURL is the address new tabs open with.
const DefaultHomeURL = "https://www.google.com"

// DefaultSearchURL is the query prefix for addresses without a scheme.
const DefaultSearchURL = "https://www.google.com/search?q="

// DefaultSchemes lists the address schemes that are loaded verbatim.
var DefaultSchemes = []string{"http", "https", "about", "file", "data"}

// SessionConfig defines defaults for the tab session core.
type SessionConfig struct {
	HomeURL   string
	SearchURL string
	Schemes   []string
}

// NormalizeSessionConfig applies defaults and validates the config.
func NormalizeSessionConfig(cfg SessionConfig) (SessionConfig, error) {
	cfg.HomeURL = strings.TrimSpace(cfg.HomeURL)
	if cfg.HomeURL == "" {
		cfg.HomeURL = DefaultHomeURL
	}
	cfg.SearchURL = strings.TrimSpace(cfg.SearchURL)
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	schemes := make([]string, 0, len(cfg.Schemes))
	for _, scheme := range cfg.Schemes {
		scheme = strings.ToLower(strings.TrimSpace(scheme))
		scheme = strings.TrimSuffix(scheme, "://")
		scheme = strings.TrimSuffix(scheme, ":")
		if scheme != "" {
			schemes = append(schemes, scheme)
		}
	}
	if len(schemes) == 0 {
		schemes = append(schemes, DefaultSchemes...)
	}
	cfg.Schemes = schemes
	home, err := url.Parse(cfg.HomeURL)
	if err != nil || home.Scheme == "" {
		return SessionConfig{}, errors.New("home url must include a scheme")
	}
	search, err := url.Parse(cfg.SearchURL)
	if err != nil || search.Scheme == "" || search.Host == "" {
		return SessionConfig{}, errors.New("search url must include scheme and host")
	}
	return cfg, nil
}
