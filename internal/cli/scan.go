package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
)

// detectionFlags overrides the configured thresholds for one run
type detectionFlags struct {
	zScore       float64
	dropPercent  float64
	spikePercent float64
	featureDrop  float64
	cooldownDays int
	windowDays   int
	seasonal     bool
}

func (f *detectionFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Float64Var(&f.zScore, "z-score", 0, "minimum |z-score| for drops and spikes")
	flags.Float64Var(&f.dropPercent, "drop-threshold", 0, "minimum drop percent")
	flags.Float64Var(&f.spikePercent, "spike-threshold", 0, "minimum spike percent")
	flags.Float64Var(&f.featureDrop, "feature-drop-threshold", 0, "minimum feature usage drop percent")
	flags.IntVar(&f.cooldownDays, "cooldown-days", 0, "days a customer is skipped after a warning or critical anomaly")
	flags.IntVar(&f.windowDays, "window-days", 0, "baseline history window in days")
	flags.BoolVar(&f.seasonal, "seasonal", false, "adjust baselines by weekday")
}

// resolve applies the flags the user set on top of base
func (f *detectionFlags) resolve(cmd *cobra.Command, base anomaly.DetectionConfig) *anomaly.DetectionConfig {
	cfg := base
	flags := cmd.Flags()
	if flags.Changed("z-score") {
		cfg.ZScoreThreshold = f.zScore
	}
	if flags.Changed("drop-threshold") {
		cfg.DropThresholdPercent = f.dropPercent
	}
	if flags.Changed("spike-threshold") {
		cfg.SpikeThresholdPercent = f.spikePercent
	}
	if flags.Changed("feature-drop-threshold") {
		cfg.FeatureDropThreshold = f.featureDrop
	}
	if flags.Changed("cooldown-days") {
		cfg.CooldownDays = f.cooldownDays
	}
	if flags.Changed("window-days") {
		cfg.BaselineWindowDays = f.windowDays
	}
	if flags.Changed("seasonal") {
		cfg.SeasonalAdjustment = f.seasonal
	}
	return &cfg
}

func newScanCmd(opts *rootOptions) *cobra.Command {
	var df detectionFlags

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan every active customer for usage anomalies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := df.resolve(cmd, opts.app.Config.Detection)

			summary, err := opts.app.Detector.ScanAllCustomers(cmd.Context(), cfg)
			if summary == nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			if printed, perr := opts.print(summary); printed || perr != nil {
				if perr != nil {
					return perr
				}
				return err
			}

			t := NewTable(opts.out, "CUSTOMER", "NAME", "STATUS", "ANOMALIES")
			for _, r := range summary.Results {
				status := "scanned"
				if r.Skipped {
					status = "skipped: " + r.SkipReason
				}
				t.AddRow(r.CustomerID, truncate(r.CustomerName, 30), truncate(status, 40), strconv.Itoa(len(r.Anomalies)))
			}
			t.Render()

			fmt.Fprintf(opts.out, "\nScanned %d, skipped %d, with anomalies %d in %s\n",
				summary.CustomersScanned, summary.CustomersSkipped, summary.CustomersWithAnomalies, summary.Duration.Round(time.Millisecond))
			fmt.Fprintf(opts.out, "Anomalies: %d (critical %d, warning %d, info %d)\n",
				summary.TotalAnomalies,
				summary.BySeverity[anomaly.SeverityCritical],
				summary.BySeverity[anomaly.SeverityWarning],
				summary.BySeverity[anomaly.SeverityInfo])
			return err
		},
	}

	df.register(cmd)
	return cmd
}

func newDetectCmd(opts *rootOptions) *cobra.Command {
	var df detectionFlags

	cmd := &cobra.Command{
		Use:   "detect <customer-id>",
		Short: "Run anomaly detection for one customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := df.resolve(cmd, opts.app.Config.Detection)

			result, err := opts.app.Detector.DetectAnomaliesForCustomer(cmd.Context(), args[0], cfg)
			if err != nil {
				return fmt.Errorf("failed to detect anomalies: %w", err)
			}

			if printed, err := opts.print(result); printed || err != nil {
				return err
			}

			if result.Skipped {
				fmt.Fprintf(opts.out, "Skipped %s: %s\n", result.CustomerID, result.SkipReason)
				return nil
			}
			if len(result.Anomalies) == 0 {
				fmt.Fprintf(opts.out, "No anomalies detected for %s\n", result.CustomerID)
				return nil
			}
			renderAnomalies(opts.out, result.Anomalies)
			return nil
		},
	}

	df.register(cmd)
	return cmd
}
