package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/predictops/tipsync/internal/model"
	"github.com/predictops/tipsync/internal/pipeline"
)

// Exit codes of the verify command.
const (
	exitPass          = 0
	exitDiscrepancies = 1
	exitInit          = 3
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Compare stored predictions against the platform",
	Long:  "Exit code 0 when everything is in sync, 1 when discrepancies exist, 3 when nothing has been predicted yet.",
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

		report, err := e.Pipeline.Verify(ctx, m)
		if err != nil {
			return err
		}

		printReport(os.Stdout, report)
		exitCode = reportExitCode(report)
		return nil
	},
}

func reportExitCode(r *model.Report) int {
	switch {
	case r.Init:
		return exitInit
	case r.HasDiscrepancies:
		return exitDiscrepancies
	default:
		return exitPass
	}
}

func printReport(w io.Writer, r *model.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tSTATUS\tDETAIL")
	for _, res := range r.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", res.EntityKey, res.Classification, res.Detail)
	}
	tw.Flush()

	if r.Init {
		fmt.Fprintln(w, "no local predictions yet; run predict first")
		return
	}
	fmt.Fprintf(w, "in sync %d, mismatched %d, missing locally %d, missing externally %d, outdated %d, errors %d\n",
		r.Count(model.ClassInSync), r.Count(model.ClassMismatched),
		r.Count(model.ClassMissingLocally), r.Count(model.ClassMissingExternally),
		r.Count(model.ClassOutdated), r.Count(model.ClassError))
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
