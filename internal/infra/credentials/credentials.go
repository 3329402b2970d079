// Package credentials resolves the platform API key. Resolution order:
// local credential file, then environment variable, then a fatal error
// whose message names both locations.
package credentials

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/Shrish242/moltbook-ai-agent/internal/domain/entity"
)

// EnvVar is the environment variable consulted when no credential file
// yields a key.
const EnvVar = "MOLTBOOK_API_KEY"

// DefaultPath returns the default credential file location,
// ~/.config/moltbook/credentials.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "moltbook", "credentials.json")
}

// credentialFile is the JSON shape of the credential file.
type credentialFile struct {
	APIKey string `json:"api_key"`
}

// Resolve returns the API key from the credential file at path (or the
// default location when path is empty), falling back to the environment.
// A missing or unreadable file is not an error by itself; only failing
// both locations is.
func Resolve(path string) (string, error) {
	if path == "" {
		path = DefaultPath()
	}

	if raw, err := os.ReadFile(path); err == nil {
		var creds credentialFile
		if err := json.Unmarshal(raw, &creds); err == nil {
			if key := strings.TrimSpace(creds.APIKey); key != "" {
				return key, nil
			}
		}
	}

	if key := strings.TrimSpace(os.Getenv(EnvVar)); key != "" {
		return key, nil
	}

	return "", &entity.CredentialError{FilePath: path, EnvVar: EnvVar}
}
