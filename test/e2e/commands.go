package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/openwisp/docker-openwisp-e2e/internal/harness"
	"github.com/openwisp/docker-openwisp-e2e/internal/store"
)

func newScenariosCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the scenarios in run order",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()
			for _, sc := range harness.Catalog() {
				fmt.Fprintf(w, "%s\t%s\n", sc.Name, strings.Join(sc.Requires, ", "))
			}
		},
	}
}

func newHistoryCommand() *cobra.Command {
	var (
		run        string
		failedOnly bool
		limit      uint64
	)

	cmd := &cobra.Command{
		Use:   "history <results-db>",
		Short: "Show scenario results stored by previous runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			opts := []store.ListOption{store.WithLimit(limit)}
			if run != "" {
				opts = append(opts, store.ByRun(run))
			}
			if failedOnly {
				opts = append(opts, store.FailedOnly())
			}
			records, err := s.Results().List(cmd.Context(), opts...)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "RUN\tSCENARIO\tSTATUS\tDURATION\tMESSAGE")
			for _, r := range records {
				msg, _, _ := strings.Cut(r.Message, "\n")
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.RunID, r.Name, r.Status, r.Duration().Round(time.Millisecond), msg)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&run, "run", "", "Only show the results of this run ID")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only show failed scenarios")
	cmd.Flags().Uint64Var(&limit, "limit", 50, "Maximum number of results")
	return cmd
}
