package marketplace

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// defaultTokenLifetime applies when the provider omits expires_in
const defaultTokenLifetime = 5 * time.Minute

// TokenFetcher obtains a fresh access token for a credential set
type TokenFetcher func(ctx context.Context, creds Credentials) (*oauth2.Token, error)

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

// TokenCache keeps one access token per credential set until shortly before it expires.
// Concurrent misses for the same credentials each fetch a token; the last one stored wins.
type TokenCache struct {
	mu      sync.Mutex
	entries map[string]cachedToken
	fetch   TokenFetcher
	margin  time.Duration
	now     func() time.Time
}

// NewTokenCache creates a token cache expiring entries margin before the provider expiry
func NewTokenCache(fetch TokenFetcher, margin time.Duration, now func() time.Time) *TokenCache {
	if now == nil {
		now = time.Now
	}
	return &TokenCache{
		entries: make(map[string]cachedToken),
		fetch:   fetch,
		margin:  margin,
		now:     now,
	}
}

// Token returns a cached access token or fetches a new one
func (tc *TokenCache) Token(ctx context.Context, creds Credentials) (string, error) {
	key := cacheKey(creds)

	tc.mu.Lock()
	entry, ok := tc.entries[key]
	tc.mu.Unlock()
	if ok && tc.now().Before(entry.expiresAt) {
		return entry.accessToken, nil
	}

	token, err := tc.fetch(ctx, creds)
	if err != nil {
		return "", &AuthError{Err: err}
	}

	expiry := token.Expiry
	if expiry.IsZero() {
		expiry = tc.now().Add(defaultTokenLifetime)
	}

	tc.mu.Lock()
	tc.entries[key] = cachedToken{
		accessToken: token.AccessToken,
		expiresAt:   expiry.Add(-tc.margin),
	}
	tc.mu.Unlock()

	return token.AccessToken, nil
}

// Invalidate drops the cached token of a credential set
func (tc *TokenCache) Invalidate(creds Credentials) {
	tc.mu.Lock()
	delete(tc.entries, cacheKey(creds))
	tc.mu.Unlock()
}

// cacheKey never holds the raw secret so rotated secrets get their own entry
func cacheKey(creds Credentials) string {
	sum := sha256.Sum256([]byte(creds.ClientSecret))
	return creds.ClientID + ":" + hex.EncodeToString(sum[:])
}
