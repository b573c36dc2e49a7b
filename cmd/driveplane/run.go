package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fmachado/driveplane/internal/controlplane"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one control tick",
	Long: `Run executes one synchronous control tick: health probes, capability
decision with operator alert, stale-record reclaim, and selection of
the admissible pending batch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		id := runID()
		cfg := appCfg.Core(id)

		runner := controlplane.New(cfg, buildProbes(cfg), buildMailer(), nil, logger)
		res, err := runner.RunTick(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("DAG run:   %s\n", id)
		fmt.Printf("Health:    source=%s stage=%s target=%s drive=%s\n",
			upDown(res.Health.Source), upDown(res.Health.Stage),
			upDown(res.Health.Target), upDown(res.Health.Drive))

		if res.Decision.ExitDAG {
			fmt.Println("Decision:  exit (no work possible this run)")
			return nil
		}
		fmt.Printf("Decision:  src-to-stg=%v stg-to-tgt=%v\n",
			res.Decision.CanSrcToStg, res.Decision.CanStgToTgt)
		fmt.Printf("Reclaim:   %d in-process, %d stale, %d reset to PENDING\n",
			res.Reclaim.Total, res.Reclaim.Stale, res.Reclaim.Converted)
		fmt.Printf("Pending:   %d admissible records\n", len(res.Pending))

		for _, r := range res.Pending {
			fmt.Printf("  %s  [%s, %s]  retries %d\n",
				r.PipelineID,
				r.QueryWindowStartTime.Format("2006-01-02 15:04"),
				r.QueryWindowEndTime.Format("2006-01-02 15:04"),
				r.Retries())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
