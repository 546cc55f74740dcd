package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pthm/tlform/lib/trace"
)

var traceCmd = &cobra.Command{
	Use:   "trace <file>",
	Short: "Print a lifecycle event trace written by render or submit",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrace,
}

func runTrace(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read trace: %w", err)
	}
	entries, err := trace.Decode(data)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %s\n", time.UnixMilli(e.At).UTC().Format(time.RFC3339Nano), e.Name)
		keys := make([]string, 0, len(e.Data))
		for k := range e.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "    %s: %s\n", k, e.Data[k])
		}
	}
	return nil
}
