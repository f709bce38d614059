// Package config resolves provider credentials and runtime settings from
// the priority chain spec.md §6 names: explicit CLI flags, then
// environment variables, then the credentials file. Grounded on
// common/config_discovery.go's koanf file-provider idiom, generalized
// from config-file discovery-by-extension to the single fixed
// credentials.json schema this spec requires.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ProviderCredentials holds the single secret this core cares about per
// provider: its API key.
type ProviderCredentials struct {
	APIKey string `koanf:"api_key"`
}

// Credentials is the decoded shape of ~/.config/ikigai/credentials.json:
// { provider: { api_key: string } }.
type Credentials struct {
	Providers map[string]ProviderCredentials
}

// envVarForProvider names the environment variable a provider's key is
// read from, per spec.md §6.
var envVarForProvider = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"google":    "GOOGLE_API_KEY",
}

// Resolver resolves a provider's API key through the CLI-flag ->
// env-var -> credentials-file chain.
type Resolver struct {
	flags       map[string]string // provider -> key, from explicit CLI flags
	credentials Credentials
	Warnings    []string
}

// DefaultCredentialsPath returns ~/.config/ikigai/credentials.json.
func DefaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ikigai", "credentials.json")
}

// NewResolver loads the credentials file at path (DefaultCredentialsPath
// if empty) and returns a Resolver seeded with flags. An unreadable or
// malformed credentials file yields empty credentials, not an error, per
// spec.md §6.
func NewResolver(path string, flags map[string]string) *Resolver {
	r := &Resolver{flags: flags, credentials: Credentials{Providers: map[string]ProviderCredentials{}}}

	if path == "" {
		path = DefaultCredentialsPath()
	}
	if path == "" {
		return r
	}

	if info, err := os.Stat(path); err == nil {
		if runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
			r.Warnings = append(r.Warnings, "credentials file "+path+" is readable by group or world; expected permissions 0600")
		}
	} else {
		return r
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		return r
	}

	for provider := range envVarForProvider {
		var creds ProviderCredentials
		if err := k.Unmarshal(provider, &creds); err != nil {
			continue
		}
		if creds.APIKey != "" {
			r.credentials.Providers[provider] = creds
		}
	}
	return r
}

// APIKey resolves provider's key: CLI flag, then environment variable,
// then the credentials file. Empty strings at any tier are treated as
// unset and fall through to the next tier.
func (r *Resolver) APIKey(provider string) string {
	if v := r.flags[provider]; v != "" {
		return v
	}
	if envVar, ok := envVarForProvider[provider]; ok {
		if v := os.Getenv(envVar); v != "" {
			return v
		}
	}
	return r.credentials.Providers[provider].APIKey
}

// StateDir resolves IKIGAI_STATE_DIR, falling back to
// ~/.local/state/ikigai when unset.
func StateDir() string {
	if v := os.Getenv("IKIGAI_STATE_DIR"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "ikigai")
}

// AgentID resolves IKIGAI_AGENT_ID, empty if unset (the caller generates
// a fresh one in that case).
func AgentID() string {
	return os.Getenv("IKIGAI_AGENT_ID")
}
