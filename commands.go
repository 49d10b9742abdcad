package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"omnilead-server/models"
	"omnilead-server/services"
	"omnilead-server/utils"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the built-in service catalog where missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			n, err := services.NewCatalog(a.stores.Services, a.logger).Seed(cmd.Context())
			if err != nil {
				return fmt.Errorf("seed catalog: %w", err)
			}
			a.logger.Info("catalog seeded", zap.Int("inserted", n))
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d services\n", n)
			return nil
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay fallback files into the primary store once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			counts, syncErr := a.stores.SyncAll(cmd.Context())
			kinds := make([]string, 0, len(counts))
			for k := range counts {
				kinds = append(kinds, string(k))
			}
			sort.Strings(kinds)
			for _, k := range kinds {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %d\n", k, counts[models.Kind(k)])
			}
			return syncErr
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for a password or PIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := utils.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
