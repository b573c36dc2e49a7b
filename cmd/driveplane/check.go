package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fmachado/driveplane/internal/capability"
	"github.com/fmachado/driveplane/internal/health"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the four systems and print the capability decision",
	Long: `Check runs the connectivity probes against source, stage, target,
and drive, then prints what a control tick would be allowed to do.
No alerts are sent and no records are touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appCfg.Core(runID())

		st := health.Check(cmd.Context(), buildProbes(cfg), logger)

		fmt.Printf("Source:  %s\n", upDown(st.Source))
		fmt.Printf("Stage:   %s\n", upDown(st.Stage))
		fmt.Printf("Target:  %s\n", upDown(st.Target))
		fmt.Printf("Drive:   %s\n", upDown(st.Drive))
		fmt.Println()

		d := capability.Decide(st)
		switch {
		case d.ExitDAG:
			fmt.Println("Decision: exit (no work possible)")
		case d.CanSrcToStg && d.CanStgToTgt:
			fmt.Println("Decision: full pipeline (source-to-stage and stage-to-target)")
		case d.CanSrcToStg:
			fmt.Println("Decision: source-to-stage only")
		case d.CanStgToTgt:
			fmt.Println("Decision: stage-to-target only")
		default:
			fmt.Println("Decision: status logging only (no transfers possible)")
		}
		return nil
	},
}

func upDown(ok bool) string {
	if ok {
		return "available"
	}
	return "UNAVAILABLE"
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
