// Package tlformecho provides Echo framework integration for tlform.
//
// Mark form-render responses for every route:
//
//	e := echo.New()
//	e.Use(tlformecho.Middleware())
//
// Then answer a failed validation by re-rendering just the form:
//
//	func create(c echo.Context) error {
//	    if err := validate(c); err != nil {
//	        return tlformecho.Invalid(c, "#signup", signupForm(err))
//	    }
//	    return c.Redirect(http.StatusSeeOther, "/welcome")
//	}
package tlformecho

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/tlform"
)

// Option configures Middleware.
type Option func(*options)

type options struct {
	skipper       func(echo.Context) bool
	defaultTarget string
}

// WithSkipper excludes requests from marking when skip returns true.
func WithSkipper(skip func(echo.Context) bool) Option {
	return func(o *options) {
		o.skipper = skip
	}
}

// WithDefaultTarget sets the render target used for 422 responses to form
// requests that do not name one themselves.
func WithDefaultTarget(selector string) Option {
	return func(o *options) {
		o.defaultTarget = selector
	}
}

// Middleware marks responses to opted-in form submissions with
// turbolinks-form-render, the Echo counterpart of tlform.Middleware.
//
//	e.Use(tlformecho.Middleware())
//
//	// With options:
//	e.Use(tlformecho.Middleware(tlformecho.WithDefaultTarget("#form")))
func Middleware(opts ...Option) echo.MiddlewareFunc {
	o := &options{skipper: func(echo.Context) bool { return false }}
	for _, opt := range opts {
		opt(o)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if o.skipper(c) || !tlform.IsFormRequest(c.Request()) {
				return next(c)
			}
			res := c.Response()
			res.Header().Set(tlform.HeaderRender, "1")
			if o.defaultTarget != "" {
				res.Before(func() {
					if res.Status == http.StatusUnprocessableEntity && res.Header().Get(tlform.HeaderRenderTarget) == "" {
						res.Header().Set(tlform.HeaderRenderTarget, o.defaultTarget)
					}
				})
			}
			return next(c)
		}
	}
}

// Respond starts a tlform.Response on the Echo response writer.
//
//	tlformecho.Respond(c).WhenSuccess().Write()
func Respond(c echo.Context) *tlform.Response {
	return tlform.Respond(c.Response())
}

// Render writes a templ component to the Echo response with the given
// status.
//
//	func handler(c echo.Context) error {
//	    return tlformecho.Render(c, http.StatusOK, page())
//	}
func Render(c echo.Context, status int, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return component.Render(c.Request().Context(), c.Response())
}

// Invalid answers with 422 and renders component into target. With an
// empty target the client replaces the whole body, unless Middleware was
// configured WithDefaultTarget, in which case that selector is used.
func Invalid(c echo.Context, target string, component templ.Component) error {
	Respond(c).Invalid().Target(target).Write()
	return component.Render(c.Request().Context(), c.Response())
}

// Saved answers with 200 and asks the client to render component instead
// of ignoring the successful response.
func Saved(c echo.Context, component templ.Component) error {
	Respond(c).WhenSuccess().Write()
	return component.Render(c.Request().Context(), c.Response())
}
