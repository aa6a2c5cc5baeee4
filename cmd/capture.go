package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/predictops/tipsync/internal/pipeline"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture evidence documents from the platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		m, err := pipeline.LoadManifest(manifestPath)
		if err != nil {
			return err
		}

		e, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := e.Pipeline.Capture(ctx, m, time.Now().UTC())
		if err != nil {
			return err
		}

		fmt.Printf("captured %d, unchanged %d, failed %d\n",
			res.Captured, res.Unchanged, res.Failed)
		if res.Failed > 0 {
			return eris.Errorf("%d documents failed to capture", res.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)
}
