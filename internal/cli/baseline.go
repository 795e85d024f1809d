package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/usagepulse/internal/domain/baseline"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
)

func newBaselineCmd(opts *rootOptions) *cobra.Command {
	var (
		metric      string
		recalculate bool
		windowDays  int
	)

	cmd := &cobra.Command{
		Use:   "baseline <customer-id>",
		Short: "Show or recalculate a customer's usage baselines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			customerID := args[0]

			var baselines []*baseline.CustomerBaseline
			if recalculate {
				metrics := usage.TrackedMetrics
				if metric != "" {
					m := usage.MetricType(metric)
					if !m.IsValid() {
						return fmt.Errorf("unknown metric %q", metric)
					}
					metrics = []usage.MetricType{m}
				}
				for _, m := range metrics {
					b, err := opts.app.Baselines.Calculate(ctx, customerID, m, windowDays)
					if errors.Is(err, baseline.ErrInsufficientData) {
						continue
					}
					if err != nil {
						return fmt.Errorf("failed to calculate %s baseline: %w", m, err)
					}
					baselines = append(baselines, b)
				}
			} else {
				var err error
				baselines, err = opts.app.Baselines.List(ctx, customerID)
				if err != nil {
					return fmt.Errorf("failed to list baselines: %w", err)
				}
			}

			if printed, err := opts.print(baselines); printed || err != nil {
				return err
			}
			if len(baselines) == 0 {
				fmt.Fprintln(opts.out, "No baselines found")
				return nil
			}

			t := NewTable(opts.out, "METRIC", "MEAN", "STD DEV", "MEDIAN", "Q1", "Q3", "SAMPLES", "CALCULATED")
			for _, b := range baselines {
				t.AddRow(
					string(b.MetricType),
					formatFloat(b.Mean),
					formatFloat(b.StdDev),
					formatFloat(b.Median),
					formatFloat(b.Q1),
					formatFloat(b.Q3),
					strconv.Itoa(b.SampleCount),
					b.CalculatedAt.Format("2006-01-02 15:04"),
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&metric, "metric", "", "limit recalculation to one metric")
	cmd.Flags().BoolVar(&recalculate, "recalculate", false, "recompute baselines from history")
	cmd.Flags().IntVar(&windowDays, "window-days", baseline.DefaultWindowDays, "history window used when recalculating")

	return cmd
}
