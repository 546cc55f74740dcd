// Package rodexec runs re-created scripts inside a real Chrome page through
// go-rod, so that form renders can be checked against a JavaScript engine.
//
//	browser := rod.New().MustConnect()
//	page := browser.MustPage("")
//	r := tlform.NewReconciler(tlform.WithScriptRunner(rodexec.New(page)))
//
// Inline scripts are evaluated with indirect eval so that top-level
// declarations land in the page's global scope, as they would for a script
// element. Scripts with a src are loaded by appending a script element and
// waiting for it to load.
package rodexec

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/pthm/tlform"
)

const evalInline = `(src) => { (0, eval)(src); }`

const evalExternal = `(src, module) => new Promise((resolve, reject) => {
	const s = document.createElement("script");
	if (module) s.type = "module";
	s.src = src;
	s.onload = () => resolve();
	s.onerror = () => reject(new Error("failed to load " + src));
	document.head.appendChild(s);
})`

// Runner is a tlform.ScriptRunner backed by a rod page.
type Runner struct {
	page *rod.Page
}

// New creates a Runner for page.
func New(page *rod.Page) *Runner {
	return &Runner{page: page}
}

// RunScript evaluates s in the page.
func (r *Runner) RunScript(ctx context.Context, s tlform.Script) error {
	page := r.page.Context(ctx)
	var err error
	if s.Src != "" {
		_, err = page.Eval(evalExternal, s.Src, s.Type == "module")
	} else {
		_, err = page.Eval(evalInline, s.Text)
	}
	if err != nil {
		return fmt.Errorf("rodexec: %w", err)
	}
	return nil
}

// Global reads a global variable from the page as JSON-compatible data.
func (r *Runner) Global(ctx context.Context, name string) (any, error) {
	res, err := r.page.Context(ctx).Eval(`(name) => globalThis[name]`, name)
	if err != nil {
		return nil, fmt.Errorf("rodexec: read %s: %w", name, err)
	}
	return res.Value.Val(), nil
}

// Launch starts a headless browser and opens a blank page. The returned
// cleanup closes both.
func Launch(ctx context.Context, bin string) (*Runner, func(), error) {
	l := launcher.New().Headless(true).Context(ctx)
	if bin != "" {
		l = l.Bin(bin)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("rodexec: launch browser: %w", err)
	}
	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("rodexec: connect: %w", err)
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		browser.Close()
		l.Kill()
		return nil, nil, fmt.Errorf("rodexec: open page: %w", err)
	}
	cleanup := func() {
		page.Close()
		browser.Close()
		l.Kill()
	}
	return New(page), cleanup, nil
}
