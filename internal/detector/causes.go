package detector

import "github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"

// Candidate causes attached to detected anomalies. The table is fixed; no inference is attempted.
var dropCauses = map[anomaly.Severity]string{
	anomaly.SeverityCritical: "Possible integration issue, migration, or platform problem",
	anomaly.SeverityWarning:  "Possible team changes, seasonal slowdown, or declining engagement",
	anomaly.SeverityInfo:     "Minor usage dip; watch for a sustained trend",
}

const (
	spikeCause         = "Possible growth, new team onboarding, or feature adoption"
	patternChangeCause = "Usage moved outside its usual range; check for workflow or configuration changes"
	abandonedCause     = "Feature may have been replaced in the customer's workflow or lost its internal champion"
)

// PossibleCause returns the candidate cause for an anomaly type and severity
func PossibleCause(t anomaly.Type, severity anomaly.Severity) string {
	switch t {
	case anomaly.TypeDrop:
		return dropCauses[severity]
	case anomaly.TypeSpike:
		return spikeCause
	case anomaly.TypePatternChange:
		return patternChangeCause
	case anomaly.TypeFeatureAbandonment:
		return abandonedCause
	default:
		return ""
	}
}
