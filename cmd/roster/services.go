package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newServicesCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "services",
		Short: "Manage the services of a month",
	}
	cmd.AddCommand(newServicesEnsureCommand(root))
	return cmd
}

func newServicesEnsureCommand(root *rootOptions) *cobra.Command {
	opts := &monthFlags{}

	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Create the missing morning and evening services of every Sunday",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := opts.resolve(root)
			if err != nil {
				return err
			}
			d, err := root.open()
			if err != nil {
				return err
			}
			created, err := d.calendar.EnsureMonthServices(cmd.Context(), year, month)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[ensure] %d service(s) created for %s\n", created, monthLabel(year, month))
			return nil
		},
	}

	opts.register(cmd, true)
	return cmd
}
