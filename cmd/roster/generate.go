package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arnavshah/duty-roster-go/pkg/audit"
)

type generateOptions struct {
	monthFlags
	Commit bool
	User   string
}

func newGenerateCommand(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Ensure the month's services and generate suggestions",
		Long: `Create the missing Sunday services of a month and, with --commit,
suggest a member for every open service. Without --commit only the services are ensured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts)
		},
	}

	opts.register(cmd, true)
	cmd.Flags().BoolVar(&opts.Commit, "commit", false, "persist suggestions")
	cmd.Flags().StringVar(&opts.User, "user", "", "name to attribute the suggestions to")

	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions) error {
	year, month, err := opts.resolve(root)
	if err != nil {
		return err
	}
	d, err := root.open()
	if err != nil {
		return err
	}
	ctx := audit.WithAuthor(cmd.Context(), opts.User)
	out := cmd.OutOrStdout()

	created, err := d.calendar.EnsureMonthServices(ctx, year, month)
	if err != nil {
		return err
	}
	services, err := d.repo.MonthServices(ctx, year, month)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "[ensure] %d service(s) created; total in %s: %d\n", created, monthLabel(year, month), len(services))

	if !opts.Commit {
		fmt.Fprintf(out, "Dry-run completed for %s. Use --commit to create suggestions.\n", monthLabel(year, month))
		return nil
	}

	start := time.Now()
	res, err := d.engine.Generate(ctx, year, month, opts.User)
	if err != nil {
		return err
	}
	root.log.Info("suggestions generated",
		zap.Int("year", year),
		zap.Int("month", month),
		zap.String("actor", opts.User),
		zap.Int("suggestions_created", res.SuggestionsCreated),
		zap.Duration("duration", time.Since(start)))

	state := "existing"
	if res.MonthCreated {
		state = "created"
	}
	fmt.Fprintf(out, "[suggest] Schedule %s; %d suggestion(s) added for %s.\n", state, res.SuggestionsCreated, monthLabel(year, month))
	return nil
}
