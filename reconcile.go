package tlform

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pthm/tlform/lib/dom"
)

// Script is a freshly created script element handed to a ScriptRunner right
// after it was attached to the live document.
type Script struct {
	Node *html.Node
	Text string
	Type string
	Src  string
}

// ScriptRunner executes attached scripts. It is called exactly once per
// re-created executable script, in document order.
type ScriptRunner interface {
	RunScript(ctx context.Context, s Script) error
}

// ScriptRunnerFunc adapts a function to ScriptRunner.
type ScriptRunnerFunc func(ctx context.Context, s Script) error

// RunScript calls f.
func (f ScriptRunnerFunc) RunScript(ctx context.Context, s Script) error {
	return f(ctx, s)
}

// Viewport receives the scroll reset performed after every render.
type Viewport interface {
	ScrollTo(x, y int)
}

type nopRunner struct{}

func (nopRunner) RunScript(context.Context, Script) error { return nil }

type nopViewport struct{}

func (nopViewport) ScrollTo(int, int) {}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithDispatcher sets the lifecycle event hook.
func WithDispatcher(d Dispatcher) Option {
	return func(r *Reconciler) {
		if d != nil {
			r.dispatcher = d
		}
	}
}

// WithScriptRunner sets what executes re-created scripts.
func WithScriptRunner(s ScriptRunner) Option {
	return func(r *Reconciler) {
		if s != nil {
			r.runner = s
		}
	}
}

// WithViewport sets the scroll target.
func WithViewport(v Viewport) Option {
	return func(r *Reconciler) {
		if v != nil {
			r.viewport = v
		}
	}
}

// WithLogger sets the logger used for non-fatal diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// Reconciler applies rendering decisions to a document.
//
// It holds only its collaborators, never document state, so one Reconciler
// can serve any number of documents. A single document must not be
// reconciled from two goroutines at once; Session serializes for you.
type Reconciler struct {
	dispatcher Dispatcher
	runner     ScriptRunner
	viewport   Viewport
	logger     *zap.Logger
}

// NewReconciler creates a Reconciler. Unset collaborators are no-ops.
func NewReconciler(opts ...Option) *Reconciler {
	r := &Reconciler{
		dispatcher: nopDispatcher{},
		runner:     nopRunner{},
		viewport:   nopViewport{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle classifies resp and, unless it is ignored, reconciles doc with it.
func (r *Reconciler) Handle(ctx context.Context, doc *dom.Document, resp *InterceptedResponse) (Decision, error) {
	d := ClassifyResponse(resp)
	if d.IsIgnore() {
		return d, nil
	}
	return d, r.Reconcile(ctx, doc, d, resp.Body)
}

// Reconcile renders body into doc as prescribed by d.
//
// A mode other than the three known ones is logged and treated as ignore.
// The only failures are ErrUnparseable and ErrTargetNotFound. Both are
// logged, both leave doc untouched, and neither emits any event. On success
// the events before-render, render and load fire in that order.
func (r *Reconciler) Reconcile(ctx context.Context, doc *dom.Document, d Decision, body []byte) error {
	switch d.Mode {
	case ModeIgnore, "":
		return nil
	case ModeReplaceBody, ModeReplaceBodyAndHead:
	default:
		r.logger.Warn("tlform: unknown render mode", zap.String("mode", string(d.Mode)))
		return nil
	}
	if doc == nil || doc.Body() == nil {
		r.logger.Warn("tlform: live document has no body")
		return fmt.Errorf("%w: live document has no body", ErrUnparseable)
	}

	incoming, err := dom.Parse(bytes.NewReader(body))
	if err != nil {
		r.logger.Warn("tlform: cannot parse response body", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	var target *html.Node
	if d.Targeted() {
		target, err = doc.Query(d.Target)
		if err != nil || target == nil {
			r.logger.Warn("tlform: render target not found",
				zap.String("target", d.Target), zap.Error(err))
			return fmt.Errorf("%w: %q", ErrTargetNotFound, d.Target)
		}
	}

	newBody := incoming.Body()
	r.dispatch(EventBeforeRender, map[string]any{"newBody": newBody})

	if d.Mode == ModeReplaceBodyAndHead {
		replaceHead(doc, incoming)
	}

	snapshot := neutralizeScripts(newBody)

	if target == nil {
		dom.Replace(doc.Body(), newBody)
		target = newBody
	} else {
		dom.RemoveChildren(target)
		dom.MoveChildren(target, newBody)
	}

	r.activateScripts(ctx, target, snapshot)

	r.dispatch(EventRender, nil)
	r.scrollTop()
	r.dispatch(EventLoad, nil)
	return nil
}

// replaceHead swaps the live head for the incoming one.
func replaceHead(doc, incoming *dom.Document) {
	newHead := incoming.Head()
	if newHead == nil {
		return
	}
	if old := doc.Head(); old != nil {
		dom.Replace(old, newHead)
		return
	}
	dom.Detach(newHead)
	doc.Element().InsertBefore(newHead, doc.Body())
}

// neutralizeScripts records the text of every script under root in document
// order and blanks them so that attaching them runs nothing.
func neutralizeScripts(root *html.Node) []string {
	scripts := dom.FindAll(root, atom.Script)
	snapshot := make([]string, len(scripts))
	for i, s := range scripts {
		snapshot[i] = dom.Text(s)
		dom.SetText(s, "")
	}
	return snapshot
}

// activateScripts replaces each blanked script under root with a new element
// carrying its recorded text, then runs it. Only a fresh element executes,
// so reusing the attached one is never an option.
func (r *Reconciler) activateScripts(ctx context.Context, root *html.Node, snapshot []string) {
	scripts := dom.FindAll(root, atom.Script)
	if len(scripts) != len(snapshot) {
		r.logger.Warn("tlform: script count changed during insertion",
			zap.Int("recorded", len(snapshot)), zap.Int("attached", len(scripts)))
	}
	for i, old := range scripts {
		if i >= len(snapshot) {
			break
		}
		fresh := dom.NewElement(atom.Script, old.Attr)
		dom.SetText(fresh, snapshot[i])
		dom.Replace(old, fresh)

		s := newScript(fresh, snapshot[i])
		if !executable(s.Type) {
			continue
		}
		r.run(ctx, s)
	}
}

func (r *Reconciler) run(ctx context.Context, s Script) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("tlform: script runner panicked", zap.String("panic", fmt.Sprint(p)))
		}
	}()
	if err := r.runner.RunScript(ctx, s); err != nil {
		r.logger.Warn("tlform: script failed", zap.String("src", s.Src), zap.Error(err))
	}
}

func (r *Reconciler) dispatch(name string, data map[string]any) {
	safeDispatch(r.dispatcher, r.logger, name, data)
}

func (r *Reconciler) scrollTop() {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("tlform: viewport panicked", zap.String("panic", fmt.Sprint(p)))
		}
	}()
	r.viewport.ScrollTo(0, 0)
}

func newScript(n *html.Node, text string) Script {
	typ, _ := dom.Attr(n, "type")
	src, _ := dom.Attr(n, "src")
	return Script{Node: n, Text: text, Type: typ, Src: src}
}

// executable reports whether a browser would run a script of this type.
func executable(typ string) bool {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if i := strings.IndexByte(typ, ';'); i >= 0 {
		typ = strings.TrimSpace(typ[:i])
	}
	switch typ {
	case "", "module", "text/javascript", "application/javascript",
		"text/ecmascript", "application/ecmascript", "application/x-javascript":
		return true
	}
	return false
}
