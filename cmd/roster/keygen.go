package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arnavshah/duty-roster-go/pkg/auth"
)

func newKeygenCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen <userID>",
		Short: "Print an HMAC-signed API key for a user id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if root.cfg.Auth.APIMasterSecret == "" {
				return errors.New("API_MASTER_SECRET is not set")
			}
			key := auth.New(root.cfg.Auth).GenerateHMACKey(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Generated Key for %s:\n%s\n", args[0], key)
			return nil
		},
	}
}
