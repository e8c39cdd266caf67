package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/triage-cli/config"
	"github.com/otherjamesbrown/triage-cli/pkg/dedup"
)

type fakeStore struct {
	ids   map[string]struct{}
	saved map[string]struct{}
}

func (f *fakeStore) Load(context.Context) (map[string]struct{}, error) { return f.ids, nil }
func (f *fakeStore) Save(_ context.Context, ids map[string]struct{}) error {
	f.saved = ids
	return nil
}

func storeTestDeps(store dedup.Store) *StoreCommandDeps {
	return &StoreCommandDeps{
		LoadConfig: func() (*config.Config, error) { return config.DefaultConfig(), nil },
		OpenStore: func(context.Context, *config.Config) (dedup.Store, func(), error) {
			return store, func() {}, nil
		},
		SetKey:    func(string, string) error { return nil },
		DeleteKey: func(string) error { return nil },
	}
}

func TestStoreShow(t *testing.T) {
	store := &fakeStore{ids: map[string]struct{}{"a": {}, "b": {}, "c": {}}}
	cmd := NewStoreCommand(storeTestDeps(store))

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"show"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Tracked item ids: 3")
	assert.Contains(t, out.String(), "Backend: file")
}

func TestStoreClearConfirmed(t *testing.T) {
	store := &fakeStore{ids: map[string]struct{}{"a": {}}}
	cmd := NewStoreCommand(storeTestDeps(store))

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("y\n"))
	cmd.SetArgs([]string{"clear"})

	require.NoError(t, cmd.Execute())
	require.NotNil(t, store.saved)
	assert.Empty(t, store.saved)
	assert.Contains(t, out.String(), "cleared")
}

func TestStoreClearAborted(t *testing.T) {
	store := &fakeStore{ids: map[string]struct{}{"a": {}}}
	cmd := NewStoreCommand(storeTestDeps(store))

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("n\n"))
	cmd.SetArgs([]string{"clear"})

	require.NoError(t, cmd.Execute())
	assert.Nil(t, store.saved, "aborted clear must not touch the store")
	assert.Contains(t, out.String(), "Aborted")
}

func TestStoreClearSkipConfirmation(t *testing.T) {
	store := &fakeStore{ids: map[string]struct{}{"a": {}}}
	cmd := NewStoreCommand(storeTestDeps(store))

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"clear", "--yes"})

	require.NoError(t, cmd.Execute())
	require.NotNil(t, store.saved)
	assert.Empty(t, store.saved)
}

func TestStoreSetKeyFromPipe(t *testing.T) {
	var gotProvider, gotKey string
	deps := storeTestDeps(&fakeStore{})
	deps.SetKey = func(provider, key string) error {
		gotProvider, gotKey = provider, key
		return nil
	}
	cmd := NewStoreCommand(deps)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("sk-secret-123\n"))
	cmd.SetArgs([]string{"set-key", "openai"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "openai", gotProvider)
	assert.Equal(t, "sk-secret-123", gotKey)
	assert.NotContains(t, out.String(), "sk-secret-123", "key must be masked in output")
}

func TestStoreDeleteKey(t *testing.T) {
	var deleted string
	deps := storeTestDeps(&fakeStore{})
	deps.DeleteKey = func(provider string) error {
		deleted = provider
		return nil
	}
	cmd := NewStoreCommand(deps)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"delete-key", "gemini"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "gemini", deleted)
}
