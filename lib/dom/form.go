package dom

import (
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Form describes a <form> element as a browser would submit it.
type Form struct {
	Node   *html.Node
	Method string // upper-case HTTP method, POST when unset
	Action string // raw action attribute, empty means the current URL
	Values url.Values
}

// ParseForm reads method, action and successful controls from a form element.
func ParseForm(n *html.Node) Form {
	method, _ := Attr(n, "method")
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodPost
	}
	action, _ := Attr(n, "action")
	return Form{
		Node:   n,
		Method: method,
		Action: strings.TrimSpace(action),
		Values: FormValues(n),
	}
}

// HasAttr reports whether the form element carries attribute key.
func (f Form) HasAttr(key string) bool {
	_, ok := Attr(f.Node, key)
	return ok
}

// FormValues collects the name/value pairs of the successful controls below
// form. Submit buttons, file inputs and disabled controls are skipped;
// checkboxes and radios only count when checked.
func FormValues(form *html.Node) url.Values {
	vals := url.Values{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, disabled := Attr(n, "disabled"); disabled {
				return
			}
			name, _ := Attr(n, "name")
			switch n.DataAtom {
			case atom.Input:
				if name != "" {
					inputValue(vals, n, name)
				}
				return
			case atom.Textarea:
				if name != "" {
					vals.Add(name, Text(n))
				}
				return
			case atom.Select:
				if name != "" {
					selectValue(vals, n, name)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := form.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return vals
}

func inputValue(vals url.Values, n *html.Node, name string) {
	typ, _ := Attr(n, "type")
	val, hasVal := Attr(n, "value")
	switch strings.ToLower(typ) {
	case "submit", "button", "reset", "image", "file":
		return
	case "checkbox", "radio":
		if _, checked := Attr(n, "checked"); !checked {
			return
		}
		if !hasVal {
			val = "on"
		}
	}
	vals.Add(name, val)
}

func selectValue(vals url.Values, n *html.Node, name string) {
	_, multiple := Attr(n, "multiple")
	options := FindAll(n, atom.Option)
	picked := false
	for _, opt := range options {
		if _, sel := Attr(opt, "selected"); sel {
			vals.Add(name, optionValue(opt))
			picked = true
			if !multiple {
				return
			}
		}
	}
	if !picked && !multiple && len(options) > 0 {
		vals.Add(name, optionValue(options[0]))
	}
}

func optionValue(opt *html.Node) string {
	if v, ok := Attr(opt, "value"); ok {
		return v
	}
	return strings.TrimSpace(Text(opt))
}
