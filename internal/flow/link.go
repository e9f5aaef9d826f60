package flow

import (
	"net/url"
	"strings"
)

// BuildLink returns base/id, with the secret in the fragment when given.
// Fragments never leave the browser, so the relay only ever sees the id.
func BuildLink(base, id, secret string) string {
	link := strings.TrimRight(base, "/") + "/" + url.PathEscape(id)
	if secret != "" {
		link += "#" + url.PathEscape(secret)
	}
	return link
}

// ParseLink splits a shared link into id and secret. The id is the last path
// segment; the secret is the unescaped fragment, or the raw fragment when it
// is not valid escaping. A bare id is accepted as well.
func ParseLink(raw string) (id, secret string) {
	raw = strings.TrimSpace(raw)
	rest, fragment, _ := strings.Cut(raw, "#")

	if fragment != "" {
		if s, err := url.PathUnescape(fragment); err == nil {
			secret = s
		} else {
			secret = fragment
		}
	}

	if u, err := url.Parse(rest); err == nil && u.Host != "" {
		rest = u.EscapedPath()
	}
	rest = strings.TrimRight(rest, "/")
	if i := strings.LastIndex(rest, "/"); i >= 0 {
		rest = rest[i+1:]
	}
	if s, err := url.PathUnescape(rest); err == nil {
		rest = s
	}
	return rest, secret
}
