package tlform

import (
	"context"
	"html"
	"io"
	"sort"

	"github.com/a-h/templ"
)

// FormAttrs returns the attributes that opt a form into asynchronous
// submission with form-render handling:
//
//	<form action="/users" method="post" { tlform.FormAttrs()... }>
//
// data-remote makes the unobtrusive-JS layer submit the form via XHR;
// data-turbolinks-form makes it add the turbolinks-form-submit header.
func FormAttrs() templ.Attributes {
	return templ.Attributes{
		"data-remote": "true",
		OptInAttr:     "true",
	}
}

// Form renders a <form> element carrying attrs merged with FormAttrs,
// wrapping children.
//
//	@tlform.Form(templ.Attributes{"action": "/users", "method": "post"}, fields())
//
// Keys in attrs win over the opt-in attributes, so a caller can still pass
// data-remote="false" explicitly.
func Form(attrs templ.Attributes, children templ.Component) templ.Component {
	merged := FormAttrs()
	for k, v := range attrs {
		merged[k] = v
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<form"); err != nil {
			return err
		}
		if err := writeAttrs(w, merged); err != nil {
			return err
		}
		if _, err := io.WriteString(w, ">"); err != nil {
			return err
		}
		if children != nil {
			if err := children.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</form>")
		return err
	})
}

// writeAttrs writes attributes in key order so output is stable.
func writeAttrs(w io.Writer, attrs templ.Attributes) error {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var err error
		switch v := attrs[k].(type) {
		case bool:
			if v {
				_, err = io.WriteString(w, " "+html.EscapeString(k))
			}
		case string:
			_, err = io.WriteString(w, " "+html.EscapeString(k)+`="`+html.EscapeString(v)+`"`)
		default:
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}
