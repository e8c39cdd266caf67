package credentials

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	triageerrors "github.com/otherjamesbrown/triage-cli/pkg/errors"
)

func TestAPIKeyEnvWins(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")

	key, err := APIKey("gemini")

	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
}

func TestAPIKeyUnknownProviderUsesGenericVar(t *testing.T) {
	t.Setenv("TRIAGE_API_KEY", "generic")

	key, err := APIKey("anything")

	require.NoError(t, err)
	assert.Equal(t, "generic", key)
}

func TestSetAPIKeyRejectsEmpty(t *testing.T) {
	err := SetAPIKey("gemini", "   ")

	require.Error(t, err)
	assert.True(t, triageerrors.IsValidation(err))
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abcd", "****"},
		{"sk-1234567890", "sk-1**********"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskKey(tt.in), "in=%q", tt.in)
	}
}

func TestGmailTokenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	token := &oauth2.Token{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-def",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).UTC(),
	}

	require.NoError(t, SaveGmailToken(dir, token))

	loaded, err := LoadGmailToken(dir)
	require.NoError(t, err)
	assert.Equal(t, token.AccessToken, loaded.AccessToken)
	assert.Equal(t, token.RefreshToken, loaded.RefreshToken)
}

func TestLoadGmailTokenMissing(t *testing.T) {
	_, err := LoadGmailToken(t.TempDir())

	require.Error(t, err)
	assert.True(t, triageerrors.IsNotFound(err))
}

func TestGmailOAuthConfigMissingFile(t *testing.T) {
	_, err := GmailOAuthConfig(t.TempDir(), "scope")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials.json")
}
