package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/condamigrate/internal/cache"
	"github.com/git-pkgs/condamigrate/internal/plan"
)

func newSearchCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "search <package>...",
		Short: "Check which packages the conda catalog provides",
		Long: `Search the conda catalog for every package and report whether it was
found, either in the local cache or in the catalog. Answers from the
catalog are stored in the cache.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(output); err != nil {
				return err
			}
			s, err := a.searcher()
			if err != nil {
				return err
			}
			c, err := cache.New(a.cfg.CacheDir, a.cacheOptions()...)
			if err != nil {
				return err
			}

			p := plan.New(s, c, a.planOptions()...)
			if err := p.SearchAndMark(cmd.Context(), args); err != nil {
				return err
			}
			st := p.Stats()
			a.logger.Info("search done", "found", st.Found, "not_found", st.NotFound,
				"cache_hits", st.CacheHits, "remote_calls", st.RemoteCalls, "took", st.Duration)

			buckets := p.Buckets()
			return render(cmd.OutOrStdout(), output, buckets, func(w io.Writer) error {
				writeList(w, plan.BucketFound, buckets[plan.BucketFound])
				writeList(w, plan.BucketNotFound, buckets[plan.BucketNotFound])
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatText, "output format: text, yaml or json")
	return cmd
}
