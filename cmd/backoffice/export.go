package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/backoffice/internal/config"
	bosync "github.com/alfredjeanlab/backoffice/internal/sync"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Export users, products and saved views as JSONL",
	GroupID: "system",
	Long: `Export users, products and saved views as JSONL straight from the database
named by BACKOFFICE_DATABASE_URL. The export goes to stdout, or to --output,
or with --push to the configured export destinations (bucket and git).`,
	Args:              cobra.NoArgs,
	PersistentPreRunE: localCmd,
	RunE: func(cmd *cobra.Command, args []string) error {
		envFiles, _ := cmd.Flags().GetStringSlice("env-file")
		cfg, err := config.Load(envFiles...)
		if err != nil {
			return err
		}
		logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

		st, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		ctx := cmd.Context()

		if push, _ := cmd.Flags().GetBool("push"); push {
			blobs, err := openBlobs(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeBlobs(blobs)
			dests := exportDestinations(cfg, blobs, logger)
			if len(dests) == 0 {
				return errNoDestinations
			}
			n, err := bosync.NewScheduler(st, dests, 0, logger).RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d bytes to %d destination(s)\n", n, len(dests))
			return nil
		}

		out := cmd.OutOrStdout()
		if path, _ := cmd.Flags().GetString("output"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return bosync.ExportJSONL(ctx, st, out)
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
	exportCmd.Flags().Bool("push", false, "write to the configured export destinations")
	exportCmd.Flags().StringSlice("env-file", nil, "env files to load (default .env)")
}
