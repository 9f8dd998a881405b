package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/anomredux/claude-relay/internal/ttlcache"
)

const (
	keychainLabel = "Claude Code-credentials"

	// expiryBuffer re-reads the credential store this long before the token
	// expires. Claude Code refreshes the token itself.
	expiryBuffer = 60 * time.Second

	lookupTimeout = 5 * time.Second
)

// ErrCredentialUnavailable means no source yielded a usable token.
var ErrCredentialUnavailable = errors.New("claude oauth credentials unavailable")

// Credential is the OAuth token Claude Code stores after login.
type Credential struct {
	AccessToken      string
	ExpiresAt        time.Time
	SubscriptionType string
	RateLimitTier    string
}

// Source reads raw credential JSON from one store.
type Source interface {
	Name() string
	Read(ctx context.Context) ([]byte, error)
}

// FileSource reads ~/.claude/.credentials.json.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file" }

func (s FileSource) Read(context.Context) ([]byte, error) {
	return os.ReadFile(s.Path)
}

// PlatformSource reads the OS credential store (Keychain, libsecret or
// Windows Credential Manager).
type PlatformSource struct{}

func (PlatformSource) Name() string { return "platform" }

func (PlatformSource) Read(ctx context.Context) ([]byte, error) {
	return readPlatformStore(ctx)
}

// DefaultSources tries the credentials file first, then the OS store.
func DefaultSources(home string) []Source {
	return []Source{
		FileSource{Path: filepath.Join(home, ".claude", ".credentials.json")},
		PlatformSource{},
	}
}

// Resolver finds the current OAuth credential and caches it until shortly
// before it expires.
type Resolver struct {
	sources []Source
	cache   *ttlcache.Slot[Credential]
	log     zerolog.Logger
}

func NewResolver(sources []Source, now func() time.Time, log zerolog.Logger) *Resolver {
	return &Resolver{
		sources: sources,
		cache:   ttlcache.New[Credential](now),
		log:     log,
	}
}

// Resolve returns the cached credential or re-reads the sources in order.
// It returns ErrCredentialUnavailable when every source fails.
func (r *Resolver) Resolve(ctx context.Context) (Credential, error) {
	return r.cache.Load(ctx, func(ctx context.Context) (Credential, time.Time, error) {
		cred, err := r.lookup(ctx)
		if err != nil {
			return Credential{}, time.Time{}, err
		}
		return cred, cred.ExpiresAt.Add(-expiryBuffer), nil
	})
}

// Invalidate forces the next Resolve to re-read the sources.
func (r *Resolver) Invalidate() {
	r.cache.Invalidate()
}

func (r *Resolver) lookup(ctx context.Context) (Credential, error) {
	for _, src := range r.sources {
		cred, err := readSource(ctx, src)
		if err == nil {
			return cred, nil
		}
		r.log.Debug().Err(err).Str("source", src.Name()).Msg("credential source unavailable")
	}
	return Credential{}, ErrCredentialUnavailable
}

func readSource(ctx context.Context, src Source) (Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	raw, err := src.Read(ctx)
	if err != nil {
		return Credential{}, err
	}
	return parseCredentialJSON(raw)
}

// parseCredentialJSON extracts the OAuth block from Claude Code's
// credential JSON.
func parseCredentialJSON(raw []byte) (Credential, error) {
	var creds struct {
		ClaudeAiOauth struct {
			AccessToken      string `json:"accessToken"`
			ExpiresAt        int64  `json:"expiresAt"` // unix millis
			SubscriptionType string `json:"subscriptionType"`
			RateLimitTier    string `json:"rateLimitTier"`
		} `json:"claudeAiOauth"`
	}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credential{}, fmt.Errorf("parse credentials: %w", err)
	}
	oauth := creds.ClaudeAiOauth
	if oauth.AccessToken == "" {
		return Credential{}, fmt.Errorf("empty access token")
	}
	return Credential{
		AccessToken:      oauth.AccessToken,
		ExpiresAt:        time.UnixMilli(oauth.ExpiresAt).UTC(),
		SubscriptionType: oauth.SubscriptionType,
		RateLimitTier:    oauth.RateLimitTier,
	}, nil
}
