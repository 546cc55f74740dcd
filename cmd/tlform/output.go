package main

import (
	"fmt"
	"io"
	"os"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/pthm/tlform/lib/dom"
	"github.com/pthm/tlform/lib/trace"
)

const (
	formatHTML     = "html"
	formatMarkdown = "markdown"
)

var markdown = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// writeDocument prints doc in the requested format. Markdown covers the
// body only.
func writeDocument(w io.Writer, doc *dom.Document, format string) error {
	switch format {
	case formatHTML, "":
		out, err := doc.HTML()
		if err != nil {
			return fmt.Errorf("render document: %w", err)
		}
		_, err = fmt.Fprintln(w, out)
		return err
	case formatMarkdown:
		md, err := markdown.ConvertString(dom.OuterHTML(doc.Body()))
		if err != nil {
			return fmt.Errorf("convert to markdown: %w", err)
		}
		_, err = fmt.Fprintln(w, md)
		return err
	default:
		return fmt.Errorf("unknown format %q (want html or markdown)", format)
	}
}

// writeTrace saves the recorded lifecycle events. An empty path is a no-op.
func writeTrace(path string, rec *trace.Recorder) error {
	if path == "" {
		return nil
	}
	data, err := rec.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	return nil
}
