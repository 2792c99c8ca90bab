/*
Package basepath helps serve a single-page application from a
subdirectory. It normalises base paths, maps request paths in and out of
the base, rewrites root-absolute URLs in the entry document, and produces
Apache rewrite rules for static hosting.
*/
package basepath

import (
	"path"
	"strings"
)

/*
Normalize returns base with exactly one leading and one trailing slash.
An empty base is the root, "/".
*/
func Normalize(base string) string {
	base = strings.TrimSpace(base)
	base = strings.Trim(base, "/")

	if base == "" {
		return "/"
	}

	return "/" + path.Clean(base) + "/"
}

/*
Join places p under base. A trailing slash on p is kept so the result can
be used as a subtree route pattern.
*/
func Join(base, p string) string {
	base = Normalize(base)

	if p == "" || p == "/" {
		return base
	}

	joined := path.Join(base, p)

	if strings.HasSuffix(p, "/") {
		joined += "/"
	}

	return joined
}

/*
Strip removes base from a request path, returning a root-relative path.
The second return is false when requestPath is outside the base.
*/
func Strip(base, requestPath string) (string, bool) {
	base = Normalize(base)

	if base == "/" {
		if !strings.HasPrefix(requestPath, "/") {
			return "/" + requestPath, true
		}

		return requestPath, true
	}

	if requestPath+"/" == base {
		return "/", true
	}

	if !strings.HasPrefix(requestPath, base) {
		return "", false
	}

	return "/" + strings.TrimPrefix(requestPath, base), true
}

/*
IsAbsoluteLocal reports whether ref is a root-absolute reference to this
host, such as "/assets/app.js", as opposed to relative, protocol-relative,
or external references.
*/
func IsAbsoluteLocal(ref string) bool {
	return strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//")
}

/*
Apply rewrites a root-absolute reference so it points inside base.
References already inside base are left alone.
*/
func Apply(base, ref string) string {
	base = Normalize(base)

	if base == "/" || !IsAbsoluteLocal(ref) || strings.HasPrefix(ref, base) || ref+"/" == base {
		return ref
	}

	return base + strings.TrimPrefix(ref, "/")
}

/*
URL builds an absolute link to p under base on the site at publicURL.
A publicURL that already ends in base is not given base twice.
*/
func URL(publicURL, base, p string) string {
	base = Normalize(base)
	origin := strings.TrimSuffix(strings.TrimSpace(publicURL), "/")

	if base != "/" && strings.HasSuffix(origin+"/", base) {
		origin = strings.TrimSuffix(origin+"/", base)
	}

	return origin + Join(base, p)
}
