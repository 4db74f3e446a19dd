package marketplace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestTokenCache_ExpiresBeforeProviderExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	fetches := 0
	cache := NewTokenCache(func(ctx context.Context, creds Credentials) (*oauth2.Token, error) {
		fetches++
		return &oauth2.Token{AccessToken: "t", Expiry: clock.now.Add(5 * time.Minute)}, nil
	}, 60*time.Second, clock.Now)

	_, err := cache.Token(context.Background(), testCreds)
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)

	clock.now = clock.now.Add(3*time.Minute + 59*time.Second)
	_, err = cache.Token(context.Background(), testCreds)
	require.NoError(t, err)
	assert.Equal(t, 1, fetches, "token still inside its safety margin")

	clock.now = clock.now.Add(time.Second)
	_, err = cache.Token(context.Background(), testCreds)
	require.NoError(t, err)
	assert.Equal(t, 2, fetches, "token refreshed 60s before provider expiry")
}

func TestTokenCache_KeyedByCredentialSet(t *testing.T) {
	fetches := map[string]int{}
	cache := NewTokenCache(func(ctx context.Context, creds Credentials) (*oauth2.Token, error) {
		fetches[creds.ClientID+"/"+creds.ClientSecret]++
		return &oauth2.Token{AccessToken: creds.ClientID, Expiry: time.Now().Add(time.Hour)}, nil
	}, time.Minute, nil)

	rotated := Credentials{ClientID: testCreds.ClientID, ClientSecret: "rotated"}
	other := Credentials{ClientID: "client-2", ClientSecret: "secret-2"}

	for _, creds := range []Credentials{testCreds, rotated, other, testCreds} {
		_, err := cache.Token(context.Background(), creds)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, fetches["client-1/secret-1"])
	assert.Equal(t, 1, fetches["client-1/rotated"])
	assert.Equal(t, 1, fetches["client-2/secret-2"])

	cache.Invalidate(testCreds)
	_, err := cache.Token(context.Background(), testCreds)
	require.NoError(t, err)
	assert.Equal(t, 2, fetches["client-1/secret-1"])
}

func TestCacheKeyDoesNotContainSecret(t *testing.T) {
	key := cacheKey(testCreds)
	assert.NotContains(t, key, testCreds.ClientSecret)
	assert.Contains(t, key, testCreds.ClientID)
}
