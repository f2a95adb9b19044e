package cmd

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/pktmux/datarecording"
	"github.com/sarchlab/pktmux/recording"
)

type execInfoRow struct {
	Property string
	Value    string
}

func newReportCmd() *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report [database]",
		Short: "Summarize the latencies stored in a sqlite database.",
		Long: "`report` reads the latency table written by `run --sqlite` " +
			"and prints the latency statistics and the slowest packets.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			driver, _ := cmd.Flags().GetString("sqlite-driver")
			top, _ := cmd.Flags().GetInt("top")

			return report(cmd, driver, args[0], top)
		},
	}

	reportCmd.Flags().String("sqlite-driver", datarecording.DriverPureGo,
		"sqlite driver: sqlite (pure Go) or sqlite3 (cgo)")
	reportCmd.Flags().Int("top", 5, "number of slowest packets to list")

	return reportCmd
}

func seconds(sec float64) time.Duration {
	return time.Duration(math.Round(sec * float64(time.Second)))
}

func report(cmd *cobra.Command, driver, path string, top int) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	reader, err := datarecording.NewReaderWithDriver(driver, path)
	if err != nil {
		return err
	}
	defer reader.Close()

	reader.MapTable(datarecording.ExecInfoTable, execInfoRow{})
	reader.MapTable(recording.LatencyTable, recording.LatencyRow{})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := cmd.OutOrStdout()

	// Databases written by other tools may lack the exec_info table.
	info, _, _ := reader.Query(ctx, datarecording.ExecInfoTable,
		datarecording.QueryParams{})
	for _, row := range info {
		r := row.(*execInfoRow)
		fmt.Fprintf(out, "%s: %s\n", r.Property, r.Value)
	}

	rows, _, err := reader.Query(ctx, recording.LatencyTable,
		datarecording.QueryParams{})
	if err != nil {
		return err
	}

	summary := recording.NewSummaryRecorder()
	for _, row := range rows {
		r := row.(*recording.LatencyRow)
		_ = summary.Record(uint64(r.PacketID), seconds(r.LatencySec))
	}

	s := summary.Summary()
	fmt.Fprintf(out, "Packets: %d\n", s.Count)

	if s.Count == 0 {
		return nil
	}

	fmt.Fprintf(out, "Latency: mean %.6f s, stddev %.6f s, "+
		"min %.6f s, max %.6f s\n",
		s.MeanSec, s.StdDevSec, s.MinSec, s.MaxSec)

	if top <= 0 {
		return nil
	}

	slowest, _, err := reader.Query(ctx, recording.LatencyTable,
		datarecording.QueryParams{
			OrderBy: "LatencySec DESC, PacketID ASC",
			Limit:   top,
		})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Slowest packets:\n")
	for _, row := range slowest {
		r := row.(*recording.LatencyRow)
		fmt.Fprint(out,
			recording.FormatLine(uint64(r.PacketID), seconds(r.LatencySec)))
	}

	return nil
}
