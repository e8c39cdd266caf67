// Package credentials provides credential storage for the triage CLI.
//
// Generation-provider API keys live in the system keyring (macOS Keychain,
// Windows Credential Manager, Linux Secret Service), with environment
// variables taking precedence so CI and containers need no keyring. Gmail
// OAuth material follows the standard credentials.json/token.json layout in
// the config directory.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	triageerrors "github.com/otherjamesbrown/triage-cli/pkg/errors"
)

const (
	// keyringService is the service name used in the system keyring.
	keyringService = "triage-cli"

	gmailCredentialsFile = "credentials.json"
	gmailTokenFile       = "token.json"
)

// ErrKeyringUnavailable indicates the system keyring is not available.
var ErrKeyringUnavailable = errors.New("system keyring unavailable")

// envVarFor maps a provider name to its conventional API-key variable.
func envVarFor(provider string) string {
	switch provider {
	case "gemini":
		return "GEMINI_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	default:
		return "TRIAGE_API_KEY"
	}
}

// APIKey returns the API key for a provider. The environment variable wins;
// the system keyring is the fallback.
func APIKey(provider string) (string, error) {
	if key := os.Getenv(envVarFor(provider)); key != "" {
		return key, nil
	}

	key, err := keyring.Get(keyringService, provider)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("no API key for provider %q (set %s or run 'triage store set-key %s'): %w",
			provider, envVarFor(provider), provider, triageerrors.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return key, nil
}

// SetAPIKey stores the API key for a provider in the system keyring.
func SetAPIKey(provider, key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("API key must not be empty: %w", triageerrors.ErrValidation)
	}
	if err := keyring.Set(keyringService, provider, key); err != nil {
		return fmt.Errorf("%w: storing key: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

// DeleteAPIKey removes the stored API key for a provider.
func DeleteAPIKey(provider string) error {
	err := keyring.Delete(keyringService, provider)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: deleting key: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

// KeyringDescription names the platform key storage mechanism.
func KeyringDescription() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS Keychain"
	case "windows":
		return "Windows Credential Manager"
	default:
		return "System Keyring (Secret Service)"
	}
}

// MaskKey renders a key safe for display: first four characters plus length.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-4)
}

// GmailOAuthConfig loads the OAuth client config from credentials.json in
// configDir, requesting the given scopes.
func GmailOAuthConfig(configDir string, scopes ...string) (*oauth2.Config, error) {
	path := filepath.Join(configDir, gmailCredentialsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s (download it from the Google Cloud console): %w", path, err)
	}
	cfg, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing OAuth client config: %w", err)
	}
	return cfg, nil
}

// LoadGmailToken reads the saved OAuth token from configDir.
func LoadGmailToken(configDir string) (*oauth2.Token, error) {
	path := filepath.Join(configDir, gmailTokenFile)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("no Gmail token at %s (run 'triage auth' first): %w",
			path, triageerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("opening token file: %w", err)
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("decoding token file: %w", err)
	}
	return token, nil
}

// SaveGmailToken writes the OAuth token to configDir with owner-only access.
func SaveGmailToken(configDir string, token *oauth2.Token) error {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	path := filepath.Join(configDir, gmailTokenFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}
