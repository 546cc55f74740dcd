package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pthm/tlform"
)

var (
	classifyStatus  int
	classifyHeaders []string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Print the render decision for a status and set of headers",
	Long: `Classify applies the response decision table and prints the result:
"ignore", "body", "body(<selector>)" or "body-and-head".`,
	Example: `  tlform classify --status 422 -H 'turbolinks-form-render: 1' -H 'turbolinks-form-render-target: #errors'`,
	Args:    cobra.NoArgs,
	RunE:    runClassify,
}

func init() {
	classifyCmd.Flags().IntVar(&classifyStatus, "status", http.StatusOK, "HTTP status code")
	classifyCmd.Flags().StringArrayVarP(&classifyHeaders, "header", "H", nil, "Response header as 'Name: value' (repeatable)")
}

func runClassify(cmd *cobra.Command, args []string) error {
	h, err := parseHeaders(classifyHeaders)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tlform.Classify(classifyStatus, h))
	return nil
}

// parseHeaders turns "Name: value" pairs into a header map. A bare name
// without a colon is recorded with an empty value.
func parseHeaders(pairs []string) (http.Header, error) {
	h := http.Header{}
	for _, p := range pairs {
		name, value, _ := strings.Cut(p, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid header %q", p)
		}
		h.Add(name, strings.TrimSpace(value))
	}
	return h, nil
}
