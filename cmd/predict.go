package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/predictops/tipsync/internal/pipeline"
)

var (
	predictRepredict bool
	predictOverride  bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Generate predictions from stored evidence",
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

		res, err := e.Pipeline.Predict(ctx, m, pipeline.PredictOptions{
			Repredict: predictRepredict,
			Override:  predictOverride,
		}, time.Now().UTC())
		if err != nil {
			return err
		}

		fmt.Printf("predicted %d, skipped %d, declined %d, failed %d\n",
			res.Predicted, res.Skipped, res.Declined, res.Failed)
		return nil
	},
}

func init() {
	predictCmd.Flags().BoolVar(&predictRepredict, "repredict", false, "append a new reprediction for entities that already have one")
	predictCmd.Flags().BoolVar(&predictOverride, "override", false, "replace the latest prediction's value in place")
	rootCmd.AddCommand(predictCmd)
}
