package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
	apperrors "github.com/pratik-mahalle/usagepulse/internal/pkg/errors"
)

func newAnomaliesCmd(opts *rootOptions) *cobra.Command {
	var (
		anomalyType string
		severity    string
		metric      string
		since       time.Duration
		all         bool
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "anomalies <customer-id>",
		Short: "List recorded anomalies of a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := anomaly.Filter{
				Type:             anomaly.Type(anomalyType),
				Severity:         anomaly.Severity(severity),
				MetricType:       usage.MetricType(metric),
				IncludeDismissed: all,
				Limit:            limit,
			}
			if since > 0 {
				from := time.Now().Add(-since)
				filter.Since = &from
			}

			anomalies, err := opts.app.Detector.GetAnomaliesForCustomer(cmd.Context(), args[0], filter)
			if err != nil {
				return fmt.Errorf("failed to list anomalies: %w", err)
			}

			if printed, err := opts.print(anomalies); printed || err != nil {
				return err
			}
			if len(anomalies) == 0 {
				fmt.Fprintln(opts.out, "No anomalies found")
				return nil
			}
			renderAnomalies(opts.out, anomalies)
			return nil
		},
	}

	cmd.Flags().StringVar(&anomalyType, "type", "", "filter by type: drop, spike, pattern_change, feature_abandonment")
	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity: critical, warning, info")
	cmd.Flags().StringVar(&metric, "metric", "", "filter by metric")
	cmd.Flags().DurationVar(&since, "since", 0, "only anomalies detected within this duration, e.g. 168h")
	cmd.Flags().BoolVar(&all, "all", false, "include dismissed anomalies")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of anomalies (default 50)")

	return cmd
}

func newDismissCmd(opts *rootOptions) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "dismiss <anomaly-id>",
		Short: "Dismiss an anomaly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				userID = os.Getenv("USER")
			}

			a, err := opts.app.Detector.DismissAnomaly(cmd.Context(), args[0], userID)
			if err != nil {
				return fmt.Errorf("failed to dismiss anomaly: %w", err)
			}
			if a == nil {
				return apperrors.NotFound("anomaly " + args[0])
			}

			if printed, err := opts.print(a); printed || err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "Anomaly %s dismissed by %s at %s\n",
				a.ID, a.DismissedBy, a.DismissedAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user recorded as dismissing the anomaly (default $USER)")

	return cmd
}
