package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no Anthropic API key is configured.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// ErrNoGitHubToken is returned when no GitHub token is configured.
var ErrNoGitHubToken = errors.New("no GitHub token configured")

// APIKey resolves the Anthropic API key, environment variable first,
// then the config file. Unresolved ${VAR} references count as unset.
func APIKey(cfg *Config) (string, error) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key, nil
	}

	if cfg != nil && cfg.Anthropic.APIKey != "" {
		key := os.ExpandEnv(cfg.Anthropic.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, nil
		}
	}

	return "", ErrNoAPIKey
}

// GitHubToken resolves the GitHub token the same way.
func GitHubToken(cfg *Config) (string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, nil
	}

	if cfg != nil && cfg.GitHub.Token != "" {
		token := os.ExpandEnv(cfg.GitHub.Token)
		if token != "" && !strings.HasPrefix(token, "${") {
			return token, nil
		}
	}

	return "", ErrNoGitHubToken
}

// MaskSecret renders a credential for display: enough of the tail to
// recognize it, never enough to use it.
func MaskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) < 12 {
		return "***"
	}
	return secret[:7] + "..." + secret[len(secret)-4:]
}
