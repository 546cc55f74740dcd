package tlform

import (
	"net/http"
	"strings"
)

// Header contract shared by the server-side middleware and the client-side
// classifier. Names are matched case-insensitively by net/http.
const (
	// HeaderSubmit is set to "1" on submissions of opted-in forms. It tells the
	// server that the client understands the render headers below.
	HeaderSubmit = "turbolinks-form-submit"

	// HeaderRender marks a response as an intentional re-render (validation
	// failure or elective success view).
	HeaderRender = "turbolinks-form-render"

	// HeaderRenderTarget carries a CSS selector, resolved against the current
	// document body, naming the subtree to replace. Absent means whole body.
	HeaderRenderTarget = "turbolinks-form-render-target"

	// HeaderRenderWhenSuccess opts a 200 response into replacement. Without it
	// successful responses are left alone since the usual case is a redirect.
	HeaderRenderWhenSuccess = "turbolinks-form-render-when-success"

	// HeaderRequestedWith is the conventional XHR marker sent by rails-ujs and
	// jQuery.
	HeaderRequestedWith = "X-Requested-With"

	// AcceptHTML is the Accept value sent on opted-in submissions.
	AcceptHTML = "text/html, application/xhtml+xml"
)

// lookupHeader finds key in h ignoring case, including maps built by hand
// with non-canonical keys. An empty value still counts as present.
func lookupHeader(h http.Header, key string) (string, bool) {
	if h == nil {
		return "", false
	}
	if vals, ok := h[http.CanonicalHeaderKey(key)]; ok {
		if len(vals) == 0 {
			return "", true
		}
		return vals[0], true
	}
	for k, vals := range h {
		if strings.EqualFold(k, key) {
			if len(vals) == 0 {
				return "", true
			}
			return vals[0], true
		}
	}
	return "", false
}

func hasHeader(h http.Header, key string) bool {
	_, ok := lookupHeader(h, key)
	return ok
}

// IsXHR returns true if the request was sent by an asynchronous client.
func IsXHR(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get(HeaderRequestedWith), "XMLHttpRequest")
}

// IsFormSubmit returns true if the request comes from an opted-in form.
func IsFormSubmit(r *http.Request) bool {
	return hasHeader(r.Header, HeaderSubmit)
}

// IsFormRequest returns true if the response to r may carry render headers:
// a mutating XHR request (POST, PUT or PATCH) from an opted-in form.
//
//	if tlform.IsFormRequest(r) {
//	    tlform.Respond(w).Status(http.StatusUnprocessableEntity).Target("#errors").Write()
//	}
func IsFormRequest(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return false
	}
	return IsXHR(r) && IsFormSubmit(r)
}

// MarkFormSubmit sets the request headers the interception layer adds for
// opted-in forms: the submit marker and an HTML-preferring Accept.
func MarkFormSubmit(req *http.Request) {
	req.Header.Set(HeaderSubmit, "1")
	req.Header.Set("Accept", AcceptHTML)
}

// RenderTarget returns the trimmed target selector from h, or "".
func RenderTarget(h http.Header) string {
	v, _ := lookupHeader(h, HeaderRenderTarget)
	return strings.TrimSpace(v)
}
