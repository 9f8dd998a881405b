package api

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCredentialJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Credential
		wantErr bool
	}{
		{
			name:  "valid credentials",
			input: `{"claudeAiOauth":{"accessToken":"test-token-123","expiresAt":1771506000000,"subscriptionType":"max","rateLimitTier":"default_claude_max_20x"}}`,
			want: Credential{
				AccessToken:      "test-token-123",
				ExpiresAt:        time.UnixMilli(1771506000000).UTC(),
				SubscriptionType: "max",
				RateLimitTier:    "default_claude_max_20x",
			},
		},
		{
			name:  "token only",
			input: `{"claudeAiOauth":{"accessToken":"tok"}}`,
			want:  Credential{AccessToken: "tok", ExpiresAt: time.UnixMilli(0).UTC()},
		},
		{name: "empty access token", input: `{"claudeAiOauth":{"accessToken":""}}`, wantErr: true},
		{name: "missing claudeAiOauth key", input: `{"other":"data"}`, wantErr: true},
		{name: "invalid JSON", input: `{invalid}`, wantErr: true},
		{name: "empty input", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCredentialJSON([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type stubSource struct {
	name  string
	raw   string
	err   error
	reads atomic.Int32
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Read(context.Context) ([]byte, error) {
	s.reads.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.raw), nil
}

func credJSON(token string, expires time.Time) string {
	return `{"claudeAiOauth":{"accessToken":"` + token + `","expiresAt":` +
		strconv.FormatInt(expires.UnixMilli(), 10) + `}}`
}

func TestResolverFallsBackToPlatform(t *testing.T) {
	now := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	file := &stubSource{name: "file", err: os.ErrNotExist}
	platform := &stubSource{name: "platform", raw: credJSON("kc-token", now.Add(time.Hour))}

	r := NewResolver([]Source{file, platform}, func() time.Time { return now }, zerolog.Nop())
	cred, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "kc-token", cred.AccessToken)
}

func TestResolverSkipsMalformedFile(t *testing.T) {
	now := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	file := &stubSource{name: "file", raw: `{"claudeAiOauth":{}}`}
	platform := &stubSource{name: "platform", raw: credJSON("kc-token", now.Add(time.Hour))}

	r := NewResolver([]Source{file, platform}, func() time.Time { return now }, zerolog.Nop())
	cred, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "kc-token", cred.AccessToken)
}

func TestResolverUnavailable(t *testing.T) {
	r := NewResolver([]Source{
		&stubSource{name: "file", err: os.ErrNotExist},
		&stubSource{name: "platform", err: errors.New("no keychain")},
	}, nil, zerolog.Nop())

	_, err := r.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrCredentialUnavailable)
}

func TestResolverCachesUntilExpiryBuffer(t *testing.T) {
	now := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	src := &stubSource{name: "file", raw: credJSON("tok", now.Add(10*time.Minute))}
	r := NewResolver([]Source{src}, clock, zerolog.Nop())

	for range 3 {
		_, err := r.Resolve(context.Background())
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, src.reads.Load())

	// Inside the 60s buffer before expiry the store is read again.
	now = now.Add(9*time.Minute + 1*time.Second)
	_, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.reads.Load())
}

func TestResolverInvalidate(t *testing.T) {
	now := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	src := &stubSource{name: "file", raw: credJSON("tok", now.Add(time.Hour))}
	r := NewResolver([]Source{src}, func() time.Time { return now }, zerolog.Nop())

	_, err := r.Resolve(context.Background())
	require.NoError(t, err)
	r.Invalidate()
	_, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.reads.Load())
}

func TestFileSource(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".claude"), 0o755))
	path := filepath.Join(home, ".claude", ".credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"claudeAiOauth":{"accessToken":"file-tok"}}`), 0o600))

	sources := DefaultSources(home)
	require.Len(t, sources, 2)
	assert.Equal(t, "file", sources[0].Name())
	assert.Equal(t, "platform", sources[1].Name())

	cred, err := readSource(context.Background(), sources[0])
	require.NoError(t, err)
	assert.Equal(t, "file-tok", cred.AccessToken)
}
