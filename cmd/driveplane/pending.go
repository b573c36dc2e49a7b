package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fmachado/driveplane/internal/drive"
	"github.com/fmachado/driveplane/internal/pending"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List the admissible pending records",
	Long: `Pending prints the windows the next tick would hand to the pipeline:
PENDING rows for the configured quadruple whose window end is older
than now minus x_time_back minus granularity.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appCfg.Core(runID())

		store, err := drive.Open(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := pending.New(store, cfg, logger).Select(cmd.Context())
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No admissible pending records.")
			return nil
		}
		for _, r := range records {
			fmt.Printf("%s  [%s, %s]  retries %d\n",
				r.PipelineID,
				r.QueryWindowStartTime.Format("2006-01-02 15:04"),
				r.QueryWindowEndTime.Format("2006-01-02 15:04"),
				r.Retries())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pendingCmd)
}
