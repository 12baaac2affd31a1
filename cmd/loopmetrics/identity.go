package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loopmetrics/loopmetrics-go/pkg/identity"
)

func newIdentityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "identity",
		Short: "Print the anonymous user ID, creating it on first use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := a.storage()
			if err != nil {
				return err
			}
			store := identity.NewStore(storage)
			defer store.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.v.GetDuration("timeout"))
			defer cancel()

			id, err := store.Resolve(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}
