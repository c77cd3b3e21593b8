package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arnavshah/duty-roster-go/pkg/audit"
)

type reconcileOptions struct {
	monthFlags
	Pivot uint
	User  string
}

func newReconcileCommand(root *rootOptions) *cobra.Command {
	opts := &reconcileOptions{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute suggestions and rewrite the rows that changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, root, opts)
		},
	}

	opts.register(cmd, false)
	cmd.Flags().UintVar(&opts.Pivot, "pivot", 0, "only recompute services after this service id")
	cmd.Flags().StringVar(&opts.User, "user", "", "name to attribute changes to")

	return cmd
}

func runReconcile(cmd *cobra.Command, root *rootOptions, opts *reconcileOptions) error {
	year, month, err := opts.resolve(root)
	if err != nil {
		return err
	}
	d, err := root.open()
	if err != nil {
		return err
	}
	ctx := audit.WithAuthor(cmd.Context(), opts.User)

	start := time.Now()
	changed, err := d.engine.Reconcile(ctx, year, month, opts.User, opts.Pivot)
	if err != nil {
		return err
	}
	root.log.Info("month reconciled",
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Uint("pivot", opts.Pivot),
		zap.Uints("changed_services", changed),
		zap.Duration("duration", time.Since(start)))

	fmt.Fprintf(cmd.OutOrStdout(), "[reconcile] %d service(s) changed in %s: %v\n", len(changed), monthLabel(year, month), changed)
	return nil
}
