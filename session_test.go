package tlform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pthm/tlform/lib/dom"
	"github.com/pthm/tlform/lib/trace"
)

const signupPage = `<html><head><title>Sign up</title></head><body>
<nav>menu</nav>
<div id="form-area"><form id="signup" action="/signup" method="post" data-remote="true" data-turbolinks-form="true">
<input type="hidden" name="token" value="t0k">
<input name="name" value="">
</form></div>
<form id="plain" action="/signup" method="post"><input name="name" value=""></form>
<form id="search" action="/search" method="get"><input name="q" value="go"></form>
</body></html>`

// signupApp is a tiny server that answers the way a form-render aware
// controller would.
type signupApp struct {
	mu       sync.Mutex
	requests []*http.Request
}

func (a *signupApp) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	a.mu.Lock()
	a.requests = append(a.requests, r.Clone(context.Background()))
	a.mu.Unlock()

	switch {
	case r.URL.Path == "/signup" && r.Method == http.MethodGet:
		io.WriteString(w, signupPage)
	case r.URL.Path == "/signup":
		switch name := r.PostFormValue("name"); name {
		case "":
			Respond(w).Invalid().Target("#form-area").Write()
			io.WriteString(w, `<p class="error">Name can't be blank</p><form id="signup"></form><script>validated()</script>`)
		case "stay":
			Respond(w).WhenSuccess().Write()
			io.WriteString(w, `<html><body><h1>Saved, `+name+`</h1></body></html>`)
		default:
			http.Redirect(w, r, "/welcome", http.StatusSeeOther)
		}
	case r.URL.Path == "/welcome":
		io.WriteString(w, `<html><body><h1>Welcome</h1></body></html>`)
	case r.URL.Path == "/search":
		io.WriteString(w, `<p>results for `+r.URL.Query().Get("q")+`</p>`)
	case r.URL.Path == "/boom":
		http.Error(w, "boom", http.StatusInternalServerError)
	default:
		http.NotFound(w, r)
	}
}

func (a *signupApp) last() *http.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[len(a.requests)-1]
}

func newSignupSession(t *testing.T, opts ...SessionOption) (*Session, *signupApp, *trace.Recorder) {
	t.Helper()
	app := &signupApp{}
	srv := httptest.NewServer(Middleware(app))
	t.Cleanup(srv.Close)

	rec := trace.NewRecorder()
	base := []SessionOption{WithHTTPClient(srv.Client()), WithSessionDispatcher(rec)}
	sess, err := NewSession(srv.URL, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if err := sess.Open(context.Background(), "/signup"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return sess, app, rec
}

func TestSession_Open(t *testing.T) {
	sess, _, rec := newSignupSession(t)

	if got := sess.Document().Title(); got != "Sign up" {
		t.Errorf("Title() = %q", got)
	}
	if !strings.HasSuffix(sess.Location(), "/signup") {
		t.Errorf("Location() = %q", sess.Location())
	}
	if diff := cmp.Diff([]string{EventLoad}, rec.Names()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_SubmitValidationErrors(t *testing.T) {
	var scripts []string
	sess, app, rec := newSignupSession(t, WithReconcilerOptions(WithScriptRunner(ScriptRunnerFunc(
		func(_ context.Context, s Script) error {
			scripts = append(scripts, s.Text)
			return nil
		}))))
	rec.Reset()

	d, err := sess.Submit(context.Background(), "#signup", nil)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if d != ReplaceBody("#form-area") {
		t.Errorf("Decision = %v, want body(#form-area)", d)
	}

	req := app.last()
	if req.Header.Get(HeaderSubmit) != "1" {
		t.Errorf("%s header = %q, want 1", HeaderSubmit, req.Header.Get(HeaderSubmit))
	}
	if req.Header.Get("Accept") != AcceptHTML {
		t.Errorf("Accept = %q", req.Header.Get("Accept"))
	}
	if !IsXHR(req) {
		t.Error("submission was not marked as XHR")
	}
	if got := req.PostForm.Get("token"); got != "t0k" {
		t.Errorf("token = %q, want t0k", got)
	}

	want := []string{EventRequestStart, EventRequestEnd, EventBeforeRender, EventRender, EventLoad}
	if diff := cmp.Diff(want, rec.Names()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"validated()"}, scripts); diff != "" {
		t.Errorf("scripts mismatch (-want +got):\n%s", diff)
	}

	doc := sess.Document()
	area, _ := doc.Query("#form-area")
	if !strings.Contains(dom.InnerHTML(area), `<p class="error">`) {
		t.Errorf("form area = %q", dom.InnerHTML(area))
	}
	if nav, _ := doc.Query("nav"); nav == nil || dom.Text(nav) != "menu" {
		t.Error("content outside the target changed")
	}
}

func TestSession_SubmitOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		selector  string
		values    url.Values
		wantMode  RenderMode
		wantBody  string
		wantStart bool
	}{
		{"success opted in", "#signup", url.Values{"name": {"stay"}}, ModeReplaceBody, "<h1>Saved, stay</h1>", true},
		{"redirect success is ignored", "#signup", url.Values{"name": {"ada"}}, ModeIgnore, "<nav>menu</nav>", true},
		{"plain form errors are ignored", "#plain", nil, ModeIgnore, "<nav>menu</nav>", false},
		{"get form", "#search", nil, ModeIgnore, "<nav>menu</nav>", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, _, rec := newSignupSession(t)
			rec.Reset()

			d, err := sess.Submit(context.Background(), tt.selector, tt.values)
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if d.Mode != tt.wantMode {
				t.Errorf("Mode = %v, want %v", d.Mode, tt.wantMode)
			}
			if got := dom.InnerHTML(sess.Document().Body()); !strings.Contains(got, tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", got, tt.wantBody)
			}
			_, started := rec.Last(EventRequestStart)
			if started != tt.wantStart {
				t.Errorf("request-start dispatched = %v, want %v", started, tt.wantStart)
			}
			if _, ok := rec.Last(EventRequestEnd); !ok {
				t.Error("request-end not dispatched")
			}
		})
	}
}

func TestSession_GetFormQuery(t *testing.T) {
	sess, app, _ := newSignupSession(t)

	if _, err := sess.Submit(context.Background(), "#search", url.Values{"q": {"tlform"}}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got := app.last().URL.Query().Get("q"); got != "tlform" {
		t.Errorf("q = %q, want override value", got)
	}
}

func TestSession_ErrorPage(t *testing.T) {
	sess, _, _ := newSignupSession(t)

	d, err := sess.Handle(context.Background(), &InterceptedResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       []byte(`<html><head><title>We're sorry</title></head><body>boom</body></html>`),
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if d.Mode != ModeReplaceBodyAndHead {
		t.Errorf("Mode = %v", d.Mode)
	}
	if got := sess.Document().Title(); got != "We're sorry" {
		t.Errorf("Title() = %q", got)
	}
}

func TestSession_SubmitErrors(t *testing.T) {
	sess, _, rec := newSignupSession(t)
	rec.Reset()

	if _, err := sess.Submit(context.Background(), "#missing", nil); err == nil {
		t.Error("Submit(#missing) expected error")
	}
	if _, err := sess.Submit(context.Background(), "nav", nil); err == nil {
		t.Error("Submit(nav) expected error for non-form element")
	}
	if len(rec.Names()) != 0 {
		t.Errorf("events dispatched for unsendable forms: %v", rec.Names())
	}
}

func TestSession_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	rec := trace.NewRecorder()
	sess, err := NewSession(srv.URL, WithSessionDispatcher(rec))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	sess.SetDocument(dom.MustParse(signupPage))

	_, err = sess.Submit(context.Background(), "#signup", nil)
	if err == nil {
		t.Fatal("Submit() expected transport error")
	}
	if IsAbort(err) {
		t.Errorf("transport failure reported as abort: %v", err)
	}
	if _, ok := rec.Last(EventRequestEnd); ok {
		t.Error("request-end dispatched for a request that never completed")
	}
}

func TestSession_ConcurrentHandleIsSerialized(t *testing.T) {
	rec := trace.NewRecorder()
	sess, err := NewSession("http://example.com/", WithSessionDispatcher(rec))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	sess.SetDocument(dom.MustParse(signupPage))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess.Handle(context.Background(), &InterceptedResponse{
				StatusCode: http.StatusUnprocessableEntity,
				Header:     header(HeaderRender, "1", HeaderRenderTarget, "#form-area"),
				Body:       []byte(fmt.Sprintf(`<p class="pass">%d</p>`, i)),
			})
		}(i)
	}
	wg.Wait()

	names := rec.Names()
	if len(names) != 3*n {
		t.Fatalf("len(events) = %d, want %d", len(names), 3*n)
	}
	for i := 0; i < len(names); i += 3 {
		got := names[i : i+3]
		if diff := cmp.Diff([]string{EventBeforeRender, EventRender, EventLoad}, got); diff != "" {
			t.Fatalf("interleaved passes at %d (-want +got):\n%s", i, diff)
		}
	}
	area, _ := sess.Document().Query("#form-area")
	passes, _ := dom.QueryAll(area, ".pass")
	if got := len(passes); got != 1 {
		t.Errorf("form area holds %d pass results, want exactly 1", got)
	}
}

func TestSession_HandleNilResponse(t *testing.T) {
	sess, _, rec := newSignupSession(t)
	rec.Reset()
	before, _ := sess.HTML()

	d, err := sess.Handle(context.Background(), nil)
	if err != nil {
		t.Fatalf("Handle(nil) error = %v", err)
	}
	if !d.IsIgnore() {
		t.Errorf("Decision = %v, want ignore", d)
	}
	if after, _ := sess.HTML(); after != before {
		t.Error("Handle(nil) changed the document")
	}
	if len(rec.Names()) != 0 {
		t.Errorf("Handle(nil) emitted %v", rec.Names())
	}
}

func TestSession_SubmitBodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(Middleware(&signupApp{}))
	t.Cleanup(srv.Close)

	rec := trace.NewRecorder()
	core, logs := observer.New(zap.WarnLevel)
	sess, err := NewSession(srv.URL,
		WithHTTPClient(srv.Client()),
		WithMaxBody(40),
		WithSessionDispatcher(rec),
		WithSessionLogger(zap.New(core)),
	)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	sess.SetDocument(dom.MustParse(signupPage))
	before, _ := sess.HTML()

	d, err := sess.Submit(context.Background(), "#signup", nil)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("Submit() error = %v, want ErrBodyTooLarge", err)
	}
	if !IsAbort(err) {
		t.Errorf("IsAbort(%v) = false", err)
	}
	if !d.IsIgnore() {
		t.Errorf("Decision = %v, want ignore", d)
	}
	if after, _ := sess.HTML(); after != before {
		t.Errorf("oversized response changed the document:\n%s", after)
	}

	want := []string{EventRequestStart, EventRequestEnd}
	if diff := cmp.Diff(want, rec.Names()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if logs.FilterMessage("tlform: response body too large").Len() != 1 {
		t.Errorf("expected one body-size diagnostic, got %v", logs.All())
	}
}

func TestSession_OpenRejectsErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"server error", "/boom"},
		{"not found", "/missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, _, rec := newSignupSession(t)
			rec.Reset()
			before, _ := sess.HTML()
			location := sess.Location()

			if err := sess.Open(context.Background(), tt.path); err == nil {
				t.Fatalf("Open(%s) expected error", tt.path)
			}
			if after, _ := sess.HTML(); after != before {
				t.Error("failed Open replaced the document")
			}
			if sess.Location() != location {
				t.Errorf("Location() = %q, want %q", sess.Location(), location)
			}
			if len(rec.Names()) != 0 {
				t.Errorf("failed Open emitted %v", rec.Names())
			}
		})
	}
}
