package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pthm/tlform"
	"github.com/pthm/tlform/lib/trace"
)

var (
	submitForm   string
	submitFields []string
	submitFormat string
	submitTrace  string
)

var submitCmd = &cobra.Command{
	Use:   "submit <page>",
	Short: "Load a page, submit one of its forms, and print the rendered page",
	Long: `Submit fetches a page from a running application, submits the form
matched by --form the way an opted-in browser would, and prints the page as
it looks after the response has been rendered. Relative page paths are
resolved against base_url from the config file.`,
	Example: `  tlform submit http://localhost:3000/signup --form '#signup' --field name=`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSubmit,
}

func init() {
	f := submitCmd.Flags()
	f.StringVar(&submitForm, "form", "form", "CSS selector of the form to submit")
	f.StringArrayVar(&submitFields, "field", nil, "Override a form field as name=value (repeatable)")
	f.StringVar(&submitFormat, "format", formatHTML, "Output format (html, markdown)")
	f.StringVar(&submitTrace, "trace", "", "Write the lifecycle event trace (msgpack) to this file")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fields, err := parseFields(submitFields)
	if err != nil {
		return err
	}
	base := cfg.BaseURL
	if base == "" {
		base = args[0]
	}

	rec := trace.NewRecorder()
	sess, err := tlform.NewSession(base,
		tlform.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		tlform.WithMaxBody(cfg.MaxBody),
		tlform.WithSessionDispatcher(rec),
		tlform.WithSessionLogger(logger),
		tlform.WithReconcilerOptions(tlform.WithScriptRunner(tlform.ScriptRunnerFunc(
			func(_ context.Context, s tlform.Script) error {
				logger.Info("script", zap.String("src", s.Src), zap.String("text", s.Text))
				return nil
			}))),
	)
	if err != nil {
		return err
	}
	if err := sess.Open(ctx, args[0]); err != nil {
		return err
	}

	d, err := sess.Submit(ctx, submitForm, fields)
	if werr := writeTrace(submitTrace, rec); werr != nil {
		return werr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "decision: %s\n", d)
	return writeDocument(cmd.OutOrStdout(), sess.Document(), submitFormat)
}

// parseFields turns name=value pairs into form values. Repeated names keep
// every value in order.
func parseFields(pairs []string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	v := url.Values{}
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q (want name=value)", p)
		}
		v.Add(name, value)
	}
	return v, nil
}
