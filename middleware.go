package tlform

import (
	"net/http"
)

// Middleware marks responses to opted-in form submissions with
// turbolinks-form-render, so that validation re-renders (422) reach the
// client's reconciler. Handlers choose the status and, optionally, a target
// via Respond.
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("POST /users", createUser)
//	http.ListenAndServe(":8080", tlform.Middleware(mux))
//
// The header is set before the handler runs; error pages written later by
// the handler keep it, which is harmless since 404 and 500 are classified
// without it.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsFormRequest(r) {
			w.Header().Set(HeaderRender, "1")
		}
		next.ServeHTTP(w, r)
	})
}

// Response is a fluent builder for the render headers of one response.
//
// It is the server-side counterpart of Decision:
//
//	// Validation failure, replace only the form
//	tlform.Respond(w).Invalid().Target("#signup").Write()
//
//	// Stay on the page after a successful save
//	tlform.Respond(w).WhenSuccess().Write()
//
// Write only sets headers and the status line; the caller renders the body.
type Response struct {
	w           http.ResponseWriter
	status      int
	target      string
	whenSuccess bool
	force       bool
}

// Respond starts a Response for w.
func Respond(w http.ResponseWriter) *Response {
	return &Response{w: w, status: http.StatusOK}
}

// Status sets the HTTP status code. The default is 200.
func (r *Response) Status(code int) *Response {
	r.status = code
	return r
}

// Invalid is shorthand for Status(422), the validation re-render status.
func (r *Response) Invalid() *Response {
	return r.Status(http.StatusUnprocessableEntity)
}

// Target restricts replacement to the element matching selector in the
// client's current body.
func (r *Response) Target(selector string) *Response {
	r.target = selector
	return r
}

// WhenSuccess opts a 200 response into replacement instead of being ignored.
func (r *Response) WhenSuccess() *Response {
	r.whenSuccess = true
	return r
}

// Force sets turbolinks-form-render even when Middleware did not, for
// servers that do not install it.
func (r *Response) Force() *Response {
	r.force = true
	return r
}

// Decision reports how a client will classify this response, assuming the
// render header is present.
func (r *Response) Decision() Decision {
	h := r.headers(true)
	return Classify(r.status, h)
}

// Write applies the headers and writes the status line.
func (r *Response) Write() {
	h := r.w.Header()
	for k, v := range r.headers(r.force) {
		h[k] = v
	}
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", "text/html; charset=utf-8")
	}
	r.w.WriteHeader(r.status)
}

func (r *Response) headers(render bool) http.Header {
	h := http.Header{}
	if render {
		h.Set(HeaderRender, "1")
	}
	if r.target != "" {
		h.Set(HeaderRenderTarget, r.target)
	}
	if r.whenSuccess {
		h.Set(HeaderRenderWhenSuccess, "1")
	}
	return h
}
