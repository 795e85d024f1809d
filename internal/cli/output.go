package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
)

// Table renders data as a formatted table.
type Table struct {
	headers []string
	rows    [][]string
	writer  io.Writer
}

// NewTable creates a new table with the given headers.
func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{
		headers: headers,
		writer:  w,
	}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cols ...string) {
	t.rows = append(t.rows, cols)
}

// Render writes the table.
func (t *Table) Render() {
	w := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(t.headers, "\t"))

	sep := make([]string, len(t.headers))
	for i, h := range t.headers {
		sep[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(w, strings.Join(sep, "\t"))

	for _, row := range t.rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	w.Flush()
}

// printOutput prints data as json or yaml. Table output is rendered by the caller.
func printOutput(w io.Writer, format string, data interface{}) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// formatSeverity returns a severity string with visual indicator.
func formatSeverity(severity anomaly.Severity) string {
	switch severity {
	case anomaly.SeverityCritical:
		return "[!] CRITICAL"
	case anomaly.SeverityWarning:
		return "[W] WARNING"
	case anomaly.SeverityInfo:
		return "[i] INFO"
	default:
		return string(severity)
	}
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func renderAnomalies(w io.Writer, anomalies []*anomaly.UsageAnomaly) {
	t := NewTable(w, "ID", "METRIC", "TYPE", "SEVERITY", "BASELINE", "ACTUAL", "DEVIATION", "FEATURE", "DETECTED")
	for _, a := range anomalies {
		feature := a.AffectedFeature
		if feature == "" {
			feature = "-"
		}
		t.AddRow(
			a.ID,
			string(a.MetricType),
			string(a.AnomalyType),
			formatSeverity(a.Severity),
			formatFloat(a.BaselineValue),
			formatFloat(a.ActualValue),
			formatPercent(a.DeviationPercent),
			truncate(feature, 24),
			a.DetectedAt.Format("2006-01-02 15:04"),
		)
	}
	t.Render()
}
