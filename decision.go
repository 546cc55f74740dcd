package tlform

import (
	"net/http"
)

// RenderMode defines how much of the live document a response replaces.
type RenderMode string

const (
	// ModeIgnore leaves the document alone. No events are emitted.
	ModeIgnore RenderMode = "ignore"

	// ModeReplaceBody replaces the whole body, or the children of the element
	// named by the target selector.
	ModeReplaceBody RenderMode = "body"

	// ModeReplaceBodyAndHead replaces both body and head. Used for error pages;
	// a target selector is never honoured in this mode.
	ModeReplaceBodyAndHead RenderMode = "body-and-head"
)

// Decision is the classifier's verdict for one response.
//
// Target is only ever set together with ModeReplaceBody.
type Decision struct {
	Mode   RenderMode
	Target string
}

// Ignore returns the decision for responses this package does not handle.
func Ignore() Decision {
	return Decision{Mode: ModeIgnore}
}

// ReplaceBody returns a body replacement decision. An empty target means
// whole-body replacement.
func ReplaceBody(target string) Decision {
	return Decision{Mode: ModeReplaceBody, Target: target}
}

// ReplaceBodyAndHead returns the error-page decision.
func ReplaceBodyAndHead() Decision {
	return Decision{Mode: ModeReplaceBodyAndHead}
}

// IsIgnore reports whether d leaves the document untouched.
func (d Decision) IsIgnore() bool {
	return d.Mode == ModeIgnore || d.Mode == ""
}

// Targeted reports whether d replaces a selector-addressed subtree.
func (d Decision) Targeted() bool {
	return d.Mode == ModeReplaceBody && d.Target != ""
}

func (d Decision) String() string {
	if d.Targeted() {
		return string(d.Mode) + "(" + d.Target + ")"
	}
	if d.Mode == "" {
		return string(ModeIgnore)
	}
	return string(d.Mode)
}

// Classify maps a response status and header set to a Decision.
// Rules are tried in order and the first match wins:
//
//  1. 422 with turbolinks-form-render: form validation re-render.
//  2. 500 or 404: error page, regardless of headers.
//  3. 200 with turbolinks-form-render and turbolinks-form-render-when-success:
//     elective success view.
//  4. Anything else is ignored.
//
// Missing or malformed headers count as absent. Classify is pure.
func Classify(status int, h http.Header) Decision {
	switch {
	case status == http.StatusUnprocessableEntity && hasHeader(h, HeaderRender):
		return ReplaceBody(RenderTarget(h))
	case status == http.StatusInternalServerError || status == http.StatusNotFound:
		return ReplaceBodyAndHead()
	case status == http.StatusOK && hasHeader(h, HeaderRender) && hasHeader(h, HeaderRenderWhenSuccess):
		return ReplaceBody(RenderTarget(h))
	default:
		return Ignore()
	}
}

// ClassifyResponse classifies an intercepted response.
func ClassifyResponse(resp *InterceptedResponse) Decision {
	if resp == nil {
		return Ignore()
	}
	return Classify(resp.StatusCode, resp.Header)
}
