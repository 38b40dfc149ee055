package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pintmap/internal/fetcher"
	"github.com/sells-group/pintmap/internal/pipeline"
	"github.com/sells-group/pintmap/internal/region"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Inspect and prepare region boundaries",
}

// -- regions list --

var regionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every record in the boundary shapefile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		features, err := region.Describe(cfg.Regions.Shapefile, region.Options{
			CodeField: cfg.Regions.CodeField,
			NameField: cfg.Regions.NameField,
		})
		if err != nil {
			return eris.Wrap(err, "regions list")
		}

		configured := make(map[string]string, len(cfg.Regions.Codes))
		for _, cn := range cfg.Regions.Codes {
			configured[region.NormalizeCode(cn.Code)] = cn.Name
		}
		formatFeatures(os.Stdout, features, configured)
		return nil
	},
}

// -- regions export --

var regionsExportCmd = &cobra.Command{
	Use:   "export <path.shp>",
	Short: "Write the filtered, reprojected catalog to a new shapefile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		regions, err := pipeline.LoadRegions(cfg)
		if err != nil {
			return eris.Wrap(err, "regions export")
		}
		if err := region.Save(args[0], regions, region.Options{
			CodeField: cfg.Regions.CodeField,
			NameField: cfg.Regions.NameField,
		}); err != nil {
			return eris.Wrap(err, "regions export")
		}
		zap.L().Info("regions exported", zap.String("path", args[0]), zap.Int("regions", len(regions)))
		return nil
	},
}

// -- regions fetch --

var regionsFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and unpack the boundary archive",
	RunE: func(cmd *cobra.Command, _ []string) error {
		url, _ := cmd.Flags().GetString("url")
		if url == "" {
			url = cfg.Regions.ArchiveURL
		}
		if url == "" {
			return eris.New("regions fetch: no archive url (set regions.archive_url or --url)")
		}

		dir := filepath.Dir(cfg.Regions.Shapefile)
		archive := filepath.Join(dir, "boundaries.zip")
		n, err := fetcher.DownloadFile(cmd.Context(), newFetcher(cfg.Guindex), url, archive)
		if err != nil {
			return eris.Wrap(err, "regions fetch")
		}
		shpPath, err := fetcher.ExtractShapefile(archive, dir)
		if err != nil {
			return eris.Wrap(err, "regions fetch")
		}
		zap.L().Info("boundary archive unpacked",
			zap.String("url", url),
			zap.Int64("bytes", n),
			zap.String("shapefile", shpPath),
		)
		if filepath.Clean(shpPath) != filepath.Clean(cfg.Regions.Shapefile) {
			zap.L().Warn("extracted shapefile differs from regions.shapefile",
				zap.String("configured", cfg.Regions.Shapefile))
		}
		return nil
	},
}

func init() {
	regionsFetchCmd.Flags().String("url", "", "archive URL (default regions.archive_url)")

	regionsCmd.AddCommand(regionsListCmd)
	regionsCmd.AddCommand(regionsExportCmd)
	regionsCmd.AddCommand(regionsFetchCmd)
	rootCmd.AddCommand(regionsCmd)
}

// formatFeatures writes shapefile records to w, marking the ones in the configured catalog.
func formatFeatures(out io.Writer, features []region.Feature, configured map[string]string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CODE\tDESCRIPTOR\tRINGS\tCATALOG_NAME")
	for _, f := range features {
		name, ok := configured[f.Code]
		if !ok {
			name = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", f.Code, f.Descriptor, f.Rings, name)
	}
	_ = w.Flush()
}
