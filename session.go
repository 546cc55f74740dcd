package tlform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html/atom"

	"github.com/pthm/tlform/lib/dom"
)

// OptInAttr marks forms whose submissions may be answered with render
// headers. FormAttrs adds it.
const OptInAttr = "data-turbolinks-form"

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithHTTPClient sets the client used for page loads and submissions.
func WithHTTPClient(c *http.Client) SessionOption {
	return func(s *Session) {
		if c != nil {
			s.client = c
		}
	}
}

// WithMaxBody bounds how many response bytes are read.
func WithMaxBody(n int64) SessionOption {
	return func(s *Session) {
		s.maxBody = n
	}
}

// WithReconcilerOptions configures the Session's Reconciler. The Session's
// dispatcher and logger are applied first, so these may override them.
func WithReconcilerOptions(opts ...Option) SessionOption {
	return func(s *Session) {
		s.reconcilerOpts = append(s.reconcilerOpts, opts...)
	}
}

// WithSessionDispatcher sets the event hook shared by the Session and its
// Reconciler.
func WithSessionDispatcher(d Dispatcher) SessionOption {
	return func(s *Session) {
		if d != nil {
			s.dispatcher = d
		}
	}
}

// WithSessionLogger sets the logger shared by the Session and its Reconciler.
func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// Session is a headless stand-in for one browser tab: it owns a live
// document, submits the forms in it, and renders form responses into it.
//
// Reconciliation passes are serialized. Two submissions completing together
// are applied one after the other, in completion order.
type Session struct {
	mu             sync.Mutex
	doc            *dom.Document
	location       *url.URL
	client         *http.Client
	maxBody        int64
	dispatcher     Dispatcher
	logger         *zap.Logger
	reconciler     *Reconciler
	reconcilerOpts []Option
}

// NewSession creates a Session whose relative URLs resolve against baseURL.
// The live document starts out empty; call Open or SetDocument.
func NewSession(baseURL string, opts ...SessionOption) (*Session, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("tlform: base url: %w", err)
	}
	s := &Session{
		doc:        dom.MustParse(""),
		location:   u,
		client:     http.DefaultClient,
		maxBody:    DefaultMaxBody,
		dispatcher: nopDispatcher{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	ropts := append([]Option{WithDispatcher(s.dispatcher), WithLogger(s.logger)}, s.reconcilerOpts...)
	s.reconciler = NewReconciler(ropts...)
	return s, nil
}

// Document returns the live document. Callers must not mutate it while a
// Submit or Handle is in flight.
func (s *Session) Document() *dom.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// SetDocument replaces the live document, e.g. with a fixture.
func (s *Session) SetDocument(doc *dom.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
}

// Location returns the URL of the currently loaded page.
func (s *Session) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location.String()
}

// HTML serializes the live document.
func (s *Session) HTML() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.HTML()
}

// Open performs an ordinary page load of ref, replacing the live document,
// and dispatches the load event. A non-2xx answer is returned as an error
// and leaves the live document as it was.
func (s *Session) Open(ctx context.Context, ref string) error {
	target, err := s.resolve(ref)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", AcceptHTML)

	httpResp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("tlform: open %s: %w", target, err)
	}
	resp, err := ReadResponse(httpResp, s.maxBody)
	if err != nil {
		return fmt.Errorf("tlform: open %s: %w", target, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("tlform: open %s: %s", target, resp)
	}
	doc, err := dom.ParseString(string(resp.Body))
	if err != nil {
		return fmt.Errorf("tlform: open %s: %w", target, err)
	}

	s.mu.Lock()
	s.doc = doc
	s.location = httpResp.Request.URL
	s.mu.Unlock()

	safeDispatch(s.dispatcher, s.logger, EventLoad, nil)
	return nil
}

// Submit sends the form matched by selector asynchronously, the way the
// unobtrusive-JS layer would, and renders the response if it qualifies.
//
// overrides replace same-named form fields. Transport failures are returned
// as errors; reconciliation aborts are logged and reported through the
// returned error as well (see IsAbort) with the document left as it was.
func (s *Session) Submit(ctx context.Context, selector string, overrides url.Values) (Decision, error) {
	req, optedIn, err := s.buildRequest(ctx, selector, overrides)
	if err != nil {
		return Ignore(), err
	}

	if optedIn {
		safeDispatch(s.dispatcher, s.logger, EventRequestStart, map[string]any{"xhr": req})
	}

	httpResp, err := s.client.Do(req)
	if err != nil {
		return Ignore(), fmt.Errorf("tlform: submit %s: %w", req.URL, err)
	}
	resp, err := ReadResponse(httpResp, s.maxBody)
	safeDispatch(s.dispatcher, s.logger, EventRequestEnd, map[string]any{"xhr": resp})
	if errors.Is(err, ErrBodyTooLarge) {
		s.logger.Warn("tlform: response body too large",
			zap.Int("status", resp.StatusCode), zap.Int64("limit", s.maxBody))
		return Ignore(), fmt.Errorf("%w: %w", ErrUnparseable, err)
	}
	if err != nil {
		return Ignore(), err
	}

	return s.Handle(ctx, resp)
}

// Handle classifies resp and renders it into the live document.
// A nil resp is ignored.
func (s *Session) Handle(ctx context.Context, resp *InterceptedResponse) (Decision, error) {
	if resp == nil {
		return Ignore(), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.reconciler.Handle(ctx, s.doc, resp)
	s.logger.Debug("tlform: handled response",
		zap.Int("status", resp.StatusCode),
		zap.Stringer("decision", d),
		zap.Error(err))
	return d, err
}

func (s *Session) buildRequest(ctx context.Context, selector string, overrides url.Values) (*http.Request, bool, error) {
	s.mu.Lock()
	node, err := dom.QueryFirst(s.doc.Root, selector)
	if err == nil && (node == nil || node.DataAtom != atom.Form) {
		err = fmt.Errorf("tlform: no form matches %q", selector)
	}
	if err != nil {
		s.mu.Unlock()
		return nil, false, err
	}
	form := dom.ParseForm(node)
	s.mu.Unlock()

	for k, v := range overrides {
		form.Values[k] = v
	}

	action, err := s.resolve(form.Action)
	if err != nil {
		return nil, false, err
	}

	var req *http.Request
	if form.Method == http.MethodGet {
		q := action.Query()
		for k, v := range form.Values {
			q[k] = v
		}
		action.RawQuery = q.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, action.String(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, form.Method, action.String(), strings.NewReader(form.Values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, false, err
	}
	req.Header.Set(HeaderRequestedWith, "XMLHttpRequest")

	optedIn := form.HasAttr(OptInAttr)
	if optedIn {
		MarkFormSubmit(req)
	}
	return req, optedIn, nil
}

func (s *Session) resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("tlform: url %q: %w", ref, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location.ResolveReference(u), nil
}
