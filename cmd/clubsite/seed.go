package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warpclub/clubsite/seed"
)

func (c *cli) seedCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "seed [dir]",
		Short: "Load starter posts, events and testimonials",
		Long: `seed reads posts/*.md, events.yaml and testimonials.yaml from dir
(default ./seed) and writes them to the configured database. Records that
already exist are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "seed"
			if len(args) == 1 {
				dir = args[0]
			}
			if _, err := os.Stat(dir); err != nil {
				return err
			}
			bundle, err := seed.Load(os.DirFS(dir))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(out, "%d posts, %d events, %d testimonials in %s\n",
					len(bundle.Posts), len(bundle.Events), len(bundle.Testimonials), dir)
				return nil
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := seed.Apply(ctx, store, bundle, c.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "created %d posts, %d events, %d testimonials (%d skipped)\n",
				res.Posts, res.Events, res.Testimonials, res.Skipped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse the seed files without writing")
	return cmd
}
