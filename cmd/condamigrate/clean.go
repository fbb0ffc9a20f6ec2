package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/condamigrate/internal/cache"
)

func newCleanCmd(a *app) *cobra.Command {
	var aggressive bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Evict expired entries from the conda query cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.logger.Info("validating cache", "dir", a.cfg.CacheDir)
			c, err := cache.Open(a.cfg.CacheDir, a.cacheOptions()...)
			if err != nil {
				return fmt.Errorf("invalid cache: %w", err)
			}
			a.logger.Info("cache is healthy")

			res, err := c.Sweep(cmd.Context(), aggressive)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Files deleted: %d\n", res.Deleted)
			fmt.Fprintf(out, "Space claimed: %.2f KB\n", float64(res.BytesReclaimed)/1024)
			return nil
		},
	}
	cmd.Flags().BoolVar(&aggressive, "aggressive", false, "remove every entry regardless of age")
	return cmd
}
