package auth

import (
	"net/http"
	"time"
)

func (s *Service) tokenCookieName() string { return s.cfg.CookiePrefix + ".session_token" }
func (s *Service) cacheCookieName() string { return s.cfg.CookiePrefix + ".session_data" }

// dontRememberCookieName marks a browser whose session was created with
// remember me off, so refreshed token cookies stay browser-session scoped.
func (s *Service) dontRememberCookieName() string { return s.cfg.CookiePrefix + ".dont_remember" }

const dontRememberValue = "true"

func (s *Service) remembered(headers http.Header) bool {
	return cookieValue(headers, s.dontRememberCookieName()) != dontRememberValue
}

func cookieValue(headers http.Header, name string) string {
	r := http.Request{Header: headers}
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Service) newCookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// tokenCookie carries the raw session token. A non-persistent cookie has no
// Max-Age and ends with the browser session.
func (s *Service) tokenCookie(token string, expires time.Time, persistent bool) *http.Cookie {
	c := s.newCookie(s.tokenCookieName(), token)
	if persistent {
		c.Expires = expires.UTC()
		c.MaxAge = maxAge(expires.Sub(s.now()))
	}
	return c
}

// dontRememberCookie is set with a browser-session token cookie, or expired
// when a later sign-in asks to be remembered.
func (s *Service) dontRememberCookie(set bool) *http.Cookie {
	if set {
		return s.newCookie(s.dontRememberCookieName(), dontRememberValue)
	}
	c := s.newCookie(s.dontRememberCookieName(), "")
	c.MaxAge = -1
	return c
}

// sessionCookies returns the cookie cache snapshot for result, preceded by
// the token cookie when withToken is set. persistent only affects the token
// cookie.
func (s *Service) sessionCookies(token string, result *SessionResult, withToken, persistent bool) ([]*http.Cookie, error) {
	var cookies []*http.Cookie
	if withToken {
		cookies = append(cookies, s.tokenCookie(token, result.Session.ExpiresAt, persistent))
	}
	if s.cache == nil {
		return cookies, nil
	}

	now := s.now()
	sealed, expires, err := s.cache.seal(result, hashToken(token), now)
	if err != nil {
		return nil, err
	}
	c := s.newCookie(s.cacheCookieName(), sealed)
	c.Expires = expires.UTC()
	c.MaxAge = maxAge(expires.Sub(now))
	return append(cookies, c), nil
}

// clearCookies expires every session cookie.
func (s *Service) clearCookies() []*http.Cookie {
	token := s.newCookie(s.tokenCookieName(), "")
	token.MaxAge = -1
	cache := s.newCookie(s.cacheCookieName(), "")
	cache.MaxAge = -1
	return []*http.Cookie{token, cache, s.dontRememberCookie(false)}
}

func maxAge(d time.Duration) int {
	secs := int(d / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

func setCookies(w http.ResponseWriter, cookies []*http.Cookie) {
	for _, c := range cookies {
		http.SetCookie(w, c)
	}
}
