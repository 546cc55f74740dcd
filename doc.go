// Package tlform renders responses to asynchronous form submissions as if
// they were page loads of a Turbolinks-style navigation library.
//
// Without it, a form submitted over XHR that fails validation gets a 422
// back and the page does nothing. tlform covers both ends of a small header
// contract: the server marks responses it wants rendered, and the client
// classifies each response and reconciles the live document with it.
//
// # Header Contract
//
// The client sends turbolinks-form-submit on submissions from forms carrying
// data-turbolinks-form. The server answers with:
//   - turbolinks-form-render: render this response (422, or 200 with the next header)
//   - turbolinks-form-render-when-success: also render a 200
//   - turbolinks-form-render-target: CSS selector to render into instead of the body
//
// 404 and 500 responses are always rendered, head included, so error pages
// show up the way a normal navigation would show them.
//
// # Server Side
//
// Middleware marks every response to an opted-in XHR form submission:
//
//	mux.Handle("/", tlform.Middleware(app))
//
// Handlers pick the rest with the Respond builder:
//
//	tlform.Respond(w).Invalid().Target("#signup").Write()
//	signupForm(errs).Render(r.Context(), w)
//
// Form and FormAttrs opt a form in from templ views.
//
// # Client Side
//
// Classify maps a status and header set to a Decision:
//
//	d := tlform.Classify(422, h) // body(#signup)
//
// A Reconciler applies a Decision to a document. It parses the response,
// resolves the target, swaps the body (or the target's children), re-creates
// every script so it runs exactly once, scrolls to the top, and dispatches
// turbolinks:before-render, turbolinks:render and turbolinks:load.
// Reconciliation either completes or leaves the document untouched:
// unparseable bodies and missing targets abort with ErrUnparseable and
// ErrTargetNotFound.
//
// Session ties it together for a headless client. It loads a page, submits
// forms the way an opted-in browser would, and hands each response to the
// reconciler. Passes on one Session are serialized.
//
//	sess, _ := tlform.NewSession("http://localhost:3000")
//	sess.Open(ctx, "/signup")
//	d, err := sess.Submit(ctx, "#signup", url.Values{"name": {""}})
//
// # Testing
//
// TestSubmit runs a handler behind an httptest server, submits a form from a
// fixture page and reports what the page looks like afterwards:
//
//	result, err := tlform.TestSubmit(handler, page, "#signup", nil)
//	if !result.Rendered() || !result.BodyContains("can't be blank") { ... }
package tlform
