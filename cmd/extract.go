package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/catalog-scraper/internal/crawl"
)

func newExtractCmd(a *app) *cobra.Command {
	src := crawl.FileSource{}

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run saved HTML pages through the pipeline",
		Long: `Replays a directory of saved catalogue pages without touching the network.
Each file is treated as if it had been fetched from --base-url joined with its
path relative to --dir.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src.Logger = a.logger.Named("files")
			return a.run(cmd, src)
		},
	}

	cmd.Flags().StringVar(&src.Dir, "dir", "", "directory of saved .html pages")
	cmd.Flags().StringVar(&src.BaseURL, "base-url", "https://books.toscrape.com/", "URL the directory was saved from")
	cmd.Flags().StringSliceVar(&src.Start, "start", nil, "files to handle first, relative to --dir")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}
