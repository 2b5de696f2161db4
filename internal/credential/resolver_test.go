package credential

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobiwave/mobiwave-gateway/internal/config"
	"github.com/mobiwave/mobiwave-gateway/internal/model"
)

type sourceFunc func(ctx context.Context, accountID int64) (*model.Credential, bool, error)

func (f sourceFunc) Lookup(ctx context.Context, accountID int64) (*model.Credential, bool, error) {
	return f(ctx, accountID)
}

func TestResolveConfigTakesPriority(t *testing.T) {
	cfgSrc := FromConfig(config.ProviderConfig{APIKey: "env-key", Username: "env-user", SenderID: "ENV"})
	storeSrc := sourceFunc(func(ctx context.Context, accountID int64) (*model.Credential, bool, error) {
		t.Fatal("store source must not be consulted when config credentials exist")
		return nil, false, nil
	})

	r := NewResolver(cfgSrc, storeSrc)
	creds, err := r.Resolve(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, "env-key", creds.APIKey)
	assert.Equal(t, "env-user", creds.Username)
	assert.Equal(t, "ENV", creds.SenderID)
}

func TestResolveFallsThroughToStore(t *testing.T) {
	cfgSrc := FromConfig(config.ProviderConfig{}) // unconfigured
	storeSrc := sourceFunc(func(ctx context.Context, accountID int64) (*model.Credential, bool, error) {
		assert.Equal(t, int64(7), accountID)
		return &model.Credential{APIKey: "db-key", Username: "db-user", SenderID: "DB"}, true, nil
	})

	r := NewResolver(cfgSrc, storeSrc)
	creds, err := r.Resolve(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, "db-key", creds.APIKey)
	assert.Equal(t, "db-user", creds.Username)
}

func TestResolveSkipsIncompleteCredentials(t *testing.T) {
	partial := sourceFunc(func(ctx context.Context, accountID int64) (*model.Credential, bool, error) {
		return &model.Credential{APIKey: "only-key"}, true, nil
	})
	complete := sourceFunc(func(ctx context.Context, accountID int64) (*model.Credential, bool, error) {
		return &model.Credential{APIKey: "k", Username: "u"}, true, nil
	})

	r := NewResolver(partial, complete)
	creds, err := r.Resolve(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, "k", creds.APIKey)
}

func TestResolveMissingEverywhere(t *testing.T) {
	empty := sourceFunc(func(ctx context.Context, accountID int64) (*model.Credential, bool, error) {
		return nil, false, nil
	})

	r := NewResolver(FromConfig(config.ProviderConfig{}), empty)
	_, err := r.Resolve(context.Background(), 1)

	assert.ErrorIs(t, err, ErrCredentialsMissing)
}

func TestResolveSurfacesSourceError(t *testing.T) {
	boom := errors.New("db down")
	failing := sourceFunc(func(ctx context.Context, accountID int64) (*model.Credential, bool, error) {
		return nil, false, boom
	})

	r := NewResolver(failing)
	_, err := r.Resolve(context.Background(), 1)

	assert.ErrorIs(t, err, boom)
}
