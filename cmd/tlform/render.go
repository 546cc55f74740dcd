package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pthm/tlform"
	"github.com/pthm/tlform/lib/dom"
	"github.com/pthm/tlform/lib/rodexec"
	"github.com/pthm/tlform/lib/trace"
)

var (
	renderPage     string
	renderResponse string
	renderStatus   int
	renderHeaders  []string
	renderFormat   string
	renderTrace    string
	renderChrome   string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Apply a saved response to a saved page and print the result",
	Long: `Render loads a page and a response body from disk, classifies the
response from its status and headers, and prints the page after
reconciliation. Scripts in the response are listed on stderr, or run in
headless Chrome when --chrome is set.`,
	Example: `  tlform render --page signup.html --response errors.html --status 422 \
      -H 'turbolinks-form-render: 1' -H 'turbolinks-form-render-target: #form'`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderPage, "page", "", "Path to the live page HTML")
	f.StringVar(&renderResponse, "response", "", "Path to the response body")
	f.IntVar(&renderStatus, "status", http.StatusUnprocessableEntity, "Response status code")
	f.StringArrayVarP(&renderHeaders, "header", "H", nil, "Response header as 'Name: value' (repeatable)")
	f.StringVar(&renderFormat, "format", formatHTML, "Output format (html, markdown)")
	f.StringVar(&renderTrace, "trace", "", "Write the lifecycle event trace (msgpack) to this file")
	f.StringVar(&renderChrome, "chrome", "", "Run scripts in headless Chrome at this path ('auto' to locate one)")
	_ = renderCmd.MarkFlagRequired("page")
	_ = renderCmd.MarkFlagRequired("response")
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	page, err := os.Open(renderPage)
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	defer page.Close()
	doc, err := dom.Parse(page)
	if err != nil {
		return fmt.Errorf("parse page %s: %w", renderPage, err)
	}

	body, err := os.ReadFile(renderResponse)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	h, err := parseHeaders(renderHeaders)
	if err != nil {
		return err
	}

	runner, cleanup, err := scriptRunner(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	rec := trace.NewRecorder()
	r := tlform.NewReconciler(
		tlform.WithDispatcher(rec),
		tlform.WithScriptRunner(runner),
		tlform.WithLogger(logger),
	)
	resp := &tlform.InterceptedResponse{StatusCode: renderStatus, Header: h, Body: body}
	d, err := r.Handle(ctx, doc, resp)
	logger.Info("response handled", zap.Stringer("response", resp), zap.Stringer("decision", d), zap.Error(err))
	if werr := writeTrace(renderTrace, rec); werr != nil {
		return werr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "decision: %s\n", d)
	return writeDocument(cmd.OutOrStdout(), doc, renderFormat)
}

// scriptRunner picks the Chrome runner when --chrome is set and otherwise
// lists scripts on stderr.
func scriptRunner(ctx context.Context, cmd *cobra.Command) (tlform.ScriptRunner, func(), error) {
	if renderChrome == "" {
		return tlform.ScriptRunnerFunc(func(_ context.Context, s tlform.Script) error {
			if s.Src != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "script: src=%s\n", s.Src)
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "script: %s\n", s.Text)
			}
			return nil
		}), func() {}, nil
	}
	bin := renderChrome
	if bin == "auto" {
		bin = ""
	}
	runner, cleanup, err := rodexec.Launch(ctx, bin)
	if err != nil {
		return nil, nil, err
	}
	return runner, cleanup, nil
}
