package credential

import (
	"context"
	"errors"

	"github.com/mobiwave/mobiwave-gateway/internal/config"
	"github.com/mobiwave/mobiwave-gateway/internal/model"
	"github.com/mobiwave/mobiwave-gateway/internal/mspace"
	"github.com/mobiwave/mobiwave-gateway/internal/repository"
)

// ErrCredentialsMissing means no source yielded both an API key and a username.
var ErrCredentialsMissing = errors.New("provider credentials not configured")

// Source yields provider credentials for a caller, or reports it has none.
type Source interface {
	Lookup(ctx context.Context, accountID int64) (*model.Credential, bool, error)
}

// Resolver evaluates sources in priority order and returns the first complete
// credential. Read-only.
type Resolver struct {
	sources []Source
}

func NewResolver(sources ...Source) *Resolver {
	return &Resolver{sources: sources}
}

func (r *Resolver) Resolve(ctx context.Context, accountID int64) (mspace.Credentials, error) {
	for _, s := range r.sources {
		c, ok, err := s.Lookup(ctx, accountID)
		if err != nil {
			return mspace.Credentials{}, err
		}
		if !ok || !c.Complete() {
			continue
		}
		return mspace.Credentials{
			APIKey:   c.APIKey,
			Username: c.Username,
			SenderID: c.SenderID,
		}, nil
	}
	return mspace.Credentials{}, ErrCredentialsMissing
}

// configSource serves the process-wide reseller credentials. When present they
// are used for every caller.
type configSource struct {
	cfg config.ProviderConfig
}

func FromConfig(cfg config.ProviderConfig) Source {
	return &configSource{cfg: cfg}
}

func (s *configSource) Lookup(_ context.Context, _ int64) (*model.Credential, bool, error) {
	if s.cfg.APIKey == "" || s.cfg.Username == "" {
		return nil, false, nil
	}
	return &model.Credential{
		APIKey:   s.cfg.APIKey,
		Username: s.cfg.Username,
		SenderID: s.cfg.SenderID,
	}, true, nil
}

// storeSource serves the per-account stored credential record.
type storeSource struct {
	repo     repository.CredentialsRepository
	provider string
}

func FromStore(repo repository.CredentialsRepository, provider string) Source {
	return &storeSource{repo: repo, provider: provider}
}

func (s *storeSource) Lookup(ctx context.Context, accountID int64) (*model.Credential, bool, error) {
	if accountID <= 0 {
		return nil, false, nil
	}
	c, err := s.repo.GetActive(ctx, accountID, s.provider)
	if err != nil {
		return nil, false, err
	}
	if c == nil {
		return nil, false, nil
	}
	return c, true, nil
}
