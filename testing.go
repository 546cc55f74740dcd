package tlform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/pthm/tlform/lib/dom"
	"github.com/pthm/tlform/lib/trace"
)

// TestResult holds the outcome of submitting a form for testing.
//
// Provides convenience methods for asserting on the rendered document,
// the classification, the response and the lifecycle events.
type TestResult struct {
	HTML       string
	BodyHTML   string
	StatusCode int
	Headers    http.Header
	Decision   Decision
	Events     []string
	Scripts    []string
	Err        error
}

// TestSubmit submits the form matched by selector from page against handler
// and renders the response the way a browser tab would.
//
// The handler is wrapped in Middleware and served by an httptest.Server.
// Scripts that run during the pass are collected in TestResult.Scripts.
//
//	result, err := tlform.TestSubmit(app, signupPage, "#signup", url.Values{
//	    "email": {""},
//	})
//	if !result.Rendered() || !result.BodyContains("can't be blank") {
//	    t.Fatal("expected validation errors")
//	}
func TestSubmit(handler http.Handler, page, selector string, values url.Values) (*TestResult, error) {
	return TestSubmitWithContext(context.Background(), handler, page, selector, values)
}

// TestSubmitWithContext is TestSubmit with a caller-provided context.
func TestSubmitWithContext(ctx context.Context, handler http.Handler, page, selector string, values url.Values) (*TestResult, error) {
	srv := httptest.NewServer(Middleware(handler))
	defer srv.Close()

	doc, err := dom.ParseString(page)
	if err != nil {
		return nil, err
	}

	rec := trace.NewRecorder()
	result := &TestResult{}
	sess, err := NewSession(srv.URL+"/",
		WithHTTPClient(srv.Client()),
		WithSessionDispatcher(rec),
		WithReconcilerOptions(WithScriptRunner(ScriptRunnerFunc(func(_ context.Context, s Script) error {
			result.Scripts = append(result.Scripts, s.Text)
			return nil
		}))),
	)
	if err != nil {
		return nil, err
	}
	sess.SetDocument(doc)

	result.Decision, result.Err = sess.Submit(ctx, selector, values)
	if result.Err != nil && !IsAbort(result.Err) {
		return nil, result.Err
	}

	if e, ok := rec.Last(EventRequestEnd); ok {
		if resp, ok := e.Data["xhr"].(*InterceptedResponse); ok {
			result.StatusCode = resp.StatusCode
			result.Headers = resp.Header
		}
	}
	result.Events = rec.Names()
	if result.HTML, err = sess.HTML(); err != nil {
		return nil, err
	}
	result.BodyHTML = dom.InnerHTML(sess.Document().Body())
	return result, nil
}

// TestReconcile renders resp into page without any network round trip.
func TestReconcile(page string, resp *InterceptedResponse) (*TestResult, error) {
	doc, err := dom.ParseString(page)
	if err != nil {
		return nil, err
	}
	rec := trace.NewRecorder()
	result := &TestResult{StatusCode: resp.StatusCode, Headers: resp.Header}
	r := NewReconciler(
		WithDispatcher(rec),
		WithScriptRunner(ScriptRunnerFunc(func(_ context.Context, s Script) error {
			result.Scripts = append(result.Scripts, s.Text)
			return nil
		})),
	)
	result.Decision, result.Err = r.Handle(context.Background(), doc, resp)
	result.Events = rec.Names()
	if result.HTML, err = doc.HTML(); err != nil {
		return nil, err
	}
	result.BodyHTML = dom.InnerHTML(doc.Body())
	return result, nil
}

// Rendered reports whether the response was rendered into the document.
func (r *TestResult) Rendered() bool {
	return !r.Decision.IsIgnore() && r.Err == nil
}

// Aborted reports whether rendering was attempted but aborted.
func (r *TestResult) Aborted() bool {
	return IsAbort(r.Err)
}

// BodyContains checks if the rendered body contains a substring.
func (r *TestResult) BodyContains(substr string) bool {
	return strings.Contains(r.BodyHTML, substr)
}

// HTMLContains checks if the whole rendered document contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HasEvent checks if a lifecycle event was dispatched.
func (r *TestResult) HasEvent(name string) bool {
	for _, e := range r.Events {
		if e == name {
			return true
		}
	}
	return false
}

// HasStatus checks if the status code matches.
func (r *TestResult) HasStatus(code int) bool {
	return r.StatusCode == code
}

// HasHeader checks if a response header is set with the given value.
func (r *TestResult) HasHeader(key, value string) bool {
	return r.Headers.Get(key) == value
}
