package htmx

import (
	"net/http"
	"strings"
)

// IsRequest reports whether htmx issued the request.
func IsRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}

// IsPartial reports whether htmx wants only a fragment. Boosted navigations still get the full page.
func IsPartial(r *http.Request) bool {
	return IsRequest(r) && !strings.EqualFold(r.Header.Get("HX-Boosted"), "true")
}
