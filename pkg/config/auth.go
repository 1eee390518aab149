package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AuthEntry holds API key credentials for one provider in auth.json. Any of
// the fields may carry the key; they are checked in order.
type AuthEntry struct {
	Type   string `json:"type,omitempty"`
	Key    string `json:"key,omitempty"`
	APIKey string `json:"apiKey,omitempty"`
	Token  string `json:"token,omitempty"`
}

// GetDefaultAuthPath returns the default auth file path.
func GetDefaultAuthPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".drover", "auth.json"), nil
}

// ResolveAPIKey resolves the provider's API key from <PROVIDER>_API_KEY or
// from the auth file.
func ResolveAPIKey(provider string) (string, error) {
	providerKey := strings.ToLower(strings.TrimSpace(provider))
	if providerKey == "" {
		return "", fmt.Errorf("provider not set")
	}

	envVar := strings.ToUpper(providerKey) + "_API_KEY"
	if value := strings.TrimSpace(os.Getenv(envVar)); value != "" {
		return value, nil
	}

	authPath, err := GetDefaultAuthPath()
	if err != nil {
		return "", err
	}
	return resolveFromAuthFile(providerKey, envVar, authPath)
}

func resolveFromAuthFile(providerKey, envVar, authPath string) (string, error) {
	data, err := os.ReadFile(authPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("set %s or add credentials to %s", envVar, authPath)
		}
		return "", fmt.Errorf("read auth file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", fmt.Errorf("parse auth file: %w", err)
	}

	entryRaw, ok := raw[providerKey]
	if !ok {
		for key, value := range raw {
			if strings.EqualFold(key, providerKey) {
				entryRaw = value
				ok = true
				break
			}
		}
	}
	if !ok {
		return "", fmt.Errorf("no credentials for %q in %s", providerKey, authPath)
	}

	// The entry may be a bare string or a structured object.
	var key string
	if err := json.Unmarshal(entryRaw, &key); err == nil && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), nil
	}

	var entry AuthEntry
	if err := json.Unmarshal(entryRaw, &entry); err != nil {
		return "", fmt.Errorf("invalid auth entry for %q in %s", providerKey, authPath)
	}
	for _, candidate := range []string{entry.APIKey, entry.Key, entry.Token} {
		if candidate != "" {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("empty credentials for %q in %s", providerKey, authPath)
}
