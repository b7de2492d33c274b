// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: anthropic-api-key, openrouter-api-key, together-api-key,
// groq-api-key, ncbi-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NCBIKeyFile names the secret holding the E-utilities API key.
const NCBIKeyFile = "ncbi-api-key"

// keyFileByProvider maps an LLM provider name to its secret file.
var keyFileByProvider = map[string]string{
	"anthropic":  "anthropic-api-key",
	"openrouter": "openrouter-api-key",
	"together":   "together-api-key",
	"groq":       "groq-api-key",
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// ProviderKey returns the stored API key for an LLM provider, or "" when
// the provider is unknown or its key file is absent. Callers fall back to
// the provider's environment variable.
func ProviderKey(secrets map[string]string, provider string) string {
	file, ok := keyFileByProvider[provider]
	if !ok {
		return ""
	}
	return secrets[file]
}
