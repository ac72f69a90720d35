package auth

import (
	"net/http"
	"net/url"
	"strings"
)

// originAllowList holds normalised scheme://host[:port] origins.
type originAllowList map[string]struct{}

func newOriginAllowList(baseURL string, trusted []string) originAllowList {
	list := make(originAllowList, len(trusted)+1)
	for _, raw := range append([]string{baseURL}, trusted...) {
		if origin := normalizeOrigin(raw); origin != "" {
			list[origin] = struct{}{}
		}
	}
	return list
}

func normalizeOrigin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

func (l originAllowList) allows(origin string) bool {
	_, ok := l[normalizeOrigin(origin)]
	return ok
}

// check rejects state-changing requests whose Origin (or Referer when Origin
// is absent) names a host outside the allow list. Requests carrying neither
// header are not browser-originated and pass.
func (l originAllowList) check(r *http.Request) error {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.Header.Get("Referer")
	}
	if origin == "" || l.allows(origin) {
		return nil
	}
	return ErrInvalidOrigin
}

// safeRedirect returns target when it is a same-site relative path or an
// allowed absolute URL, and fallback otherwise.
func (l originAllowList) safeRedirect(target, fallback string) string {
	if target == "" {
		return fallback
	}
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.HasPrefix(target, "/\\") {
		return target
	}
	if l.allows(target) {
		return target
	}
	return fallback
}
