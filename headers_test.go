package tlform

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsFormRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		xhr    bool
		submit bool
		expect bool
	}{
		{"xhr post from opted-in form", http.MethodPost, true, true, true},
		{"xhr put", http.MethodPut, true, true, true},
		{"xhr patch", http.MethodPatch, true, true, true},
		{"xhr delete", http.MethodDelete, true, true, false},
		{"xhr get", http.MethodGet, true, true, false},
		{"plain post", http.MethodPost, false, true, false},
		{"xhr post without submit header", http.MethodPost, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.xhr {
				req.Header.Set(HeaderRequestedWith, "XMLHttpRequest")
			}
			if tt.submit {
				req.Header.Set(HeaderSubmit, "1")
			}
			if got := IsFormRequest(req); got != tt.expect {
				t.Errorf("IsFormRequest() = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestIsXHR_CaseInsensitive(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("x-requested-with", "xmlhttprequest")
	if !IsXHR(req) {
		t.Error("IsXHR() = false for lower-case header value")
	}
}

func TestMarkFormSubmit(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	MarkFormSubmit(req)

	if got := req.Header.Get(HeaderSubmit); got != "1" {
		t.Errorf("%s = %q, want 1", HeaderSubmit, got)
	}
	if got := req.Header.Get("Accept"); got != AcceptHTML {
		t.Errorf("Accept = %q, want %q", got, AcceptHTML)
	}
	if !IsFormSubmit(req) {
		t.Error("IsFormSubmit() = false after MarkFormSubmit")
	}
}

func TestRenderTarget(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
		expect string
	}{
		{"nil header", nil, ""},
		{"absent", http.Header{}, ""},
		{"trimmed", header(HeaderRenderTarget, "  #errors "), "#errors"},
		{"raw lower-case key", http.Header{"turbolinks-form-render-target": {".form"}}, ".form"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderTarget(tt.header); got != tt.expect {
				t.Errorf("RenderTarget() = %q, want %q", got, tt.expect)
			}
		})
	}
}
