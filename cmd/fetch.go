package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pintmap/internal/dataset"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download observations (and known pubs) from Guindex into the local caches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		force, _ := cmd.Flags().GetBool("force")
		src := newGuindexSource(cfg)

		pints := cfg.Data.PintsPath()
		if force {
			if err := removeCache(pints); err != nil {
				return err
			}
		}
		obs, err := dataset.LoadObservations(ctx, pints, src)
		if err != nil {
			return eris.Wrap(err, "fetch observations")
		}
		zap.L().Info("observations cached", zap.String("path", pints), zap.Int("rows", len(obs)))

		pubs := cfg.Data.PubsPath()
		if pubs == "" {
			return nil
		}
		if force {
			if err := removeCache(pubs); err != nil {
				return err
			}
		}
		pts, err := dataset.LoadPoints(ctx, pubs, src)
		if err != nil {
			return eris.Wrap(err, "fetch pubs")
		}
		zap.L().Info("pubs cached", zap.String("path", pubs), zap.Int("rows", len(pts)))
		return nil
	},
}

func init() {
	fetchCmd.Flags().Bool("force", false, "replace existing caches")
	rootCmd.AddCommand(fetchCmd)
}

func removeCache(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "remove cache %s", path)
	}
	return nil
}
