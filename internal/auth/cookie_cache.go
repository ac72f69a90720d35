package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
)

const (
	cacheSubject   = "session-cache"
	cacheClaimUser = "user"
	cacheClaimSess = "session"
)

// cookieCache seals a session snapshot into a PASETO v4.local token. The token
// hash is the implicit assertion, so a snapshot only opens for the session
// token it was issued with.
type cookieCache struct {
	key    paseto.V4SymmetricKey
	ttl    time.Duration
	parser paseto.Parser
}

func newCookieCache(secret []byte, ttl time.Duration) (*cookieCache, error) {
	key, err := deriveSymmetricKey(secret, purposeCookieCache)
	if err != nil {
		return nil, err
	}
	return &cookieCache{
		key: key,
		ttl: ttl,
		parser: paseto.MakeParser([]paseto.Rule{
			paseto.NotExpired(),
			paseto.Subject(cacheSubject),
		}),
	}, nil
}

// seal returns the encrypted snapshot and its expiry, which never outlives
// the session itself.
func (c *cookieCache) seal(result *SessionResult, tokenHash string, now time.Time) (string, time.Time, error) {
	expires := now.Add(c.ttl)
	if result.Session.ExpiresAt.Before(expires) {
		expires = result.Session.ExpiresAt
	}

	token := paseto.NewToken()
	token.SetSubject(cacheSubject)
	token.SetIssuedAt(now)
	token.SetExpiration(expires)
	if err := token.Set(cacheClaimSess, result.Session); err != nil {
		return "", time.Time{}, fmt.Errorf("seal session: %w", err)
	}
	if err := token.Set(cacheClaimUser, result.User); err != nil {
		return "", time.Time{}, fmt.Errorf("seal user: %w", err)
	}
	return token.V4Encrypt(c.key, []byte(tokenHash)), expires, nil
}

// open returns the cached snapshot, or false when the value is expired,
// tampered with, or bound to a different token.
func (c *cookieCache) open(value, tokenHash string) (*SessionResult, bool) {
	if value == "" {
		return nil, false
	}
	token, err := c.parser.ParseV4Local(c.key, value, []byte(tokenHash))
	if err != nil {
		return nil, false
	}

	var result SessionResult
	if err := token.Get(cacheClaimSess, &result.Session); err != nil {
		return nil, false
	}
	if err := token.Get(cacheClaimUser, &result.User); err != nil {
		return nil, false
	}
	return &result, true
}
