package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/errors"
)

const anomalyColumns = `id, customer_id, metric_type, anomaly_type, severity, baseline_value, actual_value,
	deviation_percent, z_score, detected_at, affected_feature, possible_cause, metadata, dismissed_at, dismissed_by`

type AnomalyRepository struct {
	db *sql.DB
}

func NewAnomalyRepository(db *sql.DB) anomaly.Repository {
	return &AnomalyRepository{db: db}
}

func scanAnomaly(s rowScanner) (*anomaly.UsageAnomaly, error) {
	var a anomaly.UsageAnomaly
	var zScore sql.NullFloat64
	var detectedAt string
	var feature, cause, metadata, dismissedAt, dismissedBy sql.NullString

	err := s.Scan(&a.ID, &a.CustomerID, &a.MetricType, &a.AnomalyType, &a.Severity,
		&a.BaselineValue, &a.ActualValue, &a.DeviationPercent, &zScore, &detectedAt,
		&feature, &cause, &metadata, &dismissedAt, &dismissedBy)
	if err != nil {
		return nil, err
	}

	a.Metadata, err = decodeJSON[interface{}](metadata)
	if err != nil {
		return nil, err
	}
	a.ZScore = floatPtr(zScore)
	a.DetectedAt = parseTime(detectedAt)
	a.AffectedFeature = feature.String
	a.PossibleCause = cause.String
	a.DismissedBy = dismissedBy.String
	if dismissedAt.Valid {
		t := parseTime(dismissedAt.String)
		a.DismissedAt = &t
	}
	return &a, nil
}

// CreateBatch inserts all anomalies in a single transaction
func (r *AnomalyRepository) CreateBatch(ctx context.Context, anomalies []*anomaly.UsageAnomaly) error {
	if len(anomalies) == 0 {
		return nil
	}
	defer observe("insert", "usage_anomalies", time.Now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("Failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO usage_anomalies (`+anomalyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`)
	if err != nil {
		return errors.DatabaseError("Failed to prepare anomaly insert", err)
	}
	defer stmt.Close()

	for _, a := range anomalies {
		metadata, err := encodeJSON(a.Metadata)
		if err != nil {
			return errors.Internal("Failed to encode anomaly metadata", err)
		}

		var dismissedAt sql.NullString
		if a.DismissedAt != nil {
			dismissedAt = sql.NullString{String: formatTime(*a.DismissedAt), Valid: true}
		}

		_, err = stmt.ExecContext(ctx, a.ID, a.CustomerID, string(a.MetricType), string(a.AnomalyType), string(a.Severity),
			a.BaselineValue, a.ActualValue, a.DeviationPercent, nullableFloat(a.ZScore), formatTime(a.DetectedAt),
			nullableString(a.AffectedFeature), nullableString(a.PossibleCause), metadata,
			dismissedAt, nullableString(a.DismissedBy))
		if err != nil {
			return errors.DatabaseError("Failed to create anomaly", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("Failed to commit anomalies", err)
	}
	return nil
}

func (r *AnomalyRepository) GetByID(ctx context.Context, id string) (*anomaly.UsageAnomaly, error) {
	defer observe("select", "usage_anomalies", time.Now())

	query := `SELECT ` + anomalyColumns + ` FROM usage_anomalies WHERE id = $1`

	a, err := scanAnomaly(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get anomaly", err)
	}
	return a, nil
}

func (r *AnomalyRepository) ListByCustomer(ctx context.Context, customerID string, filter anomaly.Filter) ([]*anomaly.UsageAnomaly, error) {
	defer observe("select", "usage_anomalies", time.Now())

	conditions := []string{"customer_id = $1"}
	args := []interface{}{customerID}

	addCondition := func(column string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s $%d", column, len(args)))
	}

	if filter.Type != "" {
		addCondition("anomaly_type =", string(filter.Type))
	}
	if filter.Severity != "" {
		addCondition("severity =", string(filter.Severity))
	}
	if filter.MetricType != "" {
		addCondition("metric_type =", string(filter.MetricType))
	}
	if filter.Since != nil {
		addCondition("detected_at >=", formatTime(*filter.Since))
	}
	if !filter.IncludeDismissed {
		conditions = append(conditions, "dismissed_at IS NULL")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = anomaly.DefaultListLimit
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM usage_anomalies WHERE %s ORDER BY detected_at DESC, id ASC LIMIT $%d`,
		anomalyColumns, strings.Join(conditions, " AND "), len(args))

	return r.list(ctx, query, args...)
}

// Dismiss marks the anomaly dismissed unless it already is.
// It reports whether a row was updated.
func (r *AnomalyRepository) Dismiss(ctx context.Context, id, userID string, at time.Time) (bool, error) {
	defer observe("update", "usage_anomalies", time.Now())

	query := `UPDATE usage_anomalies SET dismissed_at = $1, dismissed_by = $2 WHERE id = $3 AND dismissed_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, formatTime(at), userID, id)
	if err != nil {
		return false, errors.DatabaseError("Failed to dismiss anomaly", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("Failed to dismiss anomaly", err)
	}
	return rows > 0, nil
}

// ListActive returns non-dismissed anomalies of the given severities detected at or after since
func (r *AnomalyRepository) ListActive(ctx context.Context, customerID string, severities []anomaly.Severity, since time.Time) ([]*anomaly.UsageAnomaly, error) {
	if len(severities) == 0 {
		return nil, nil
	}
	defer observe("select", "usage_anomalies", time.Now())

	args := []interface{}{customerID, formatTime(since)}
	placeholders := make([]string, len(severities))
	for i, s := range severities {
		args = append(args, string(s))
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}

	query := fmt.Sprintf(`SELECT %s FROM usage_anomalies
		WHERE customer_id = $1 AND detected_at >= $2 AND dismissed_at IS NULL AND severity IN (%s)
		ORDER BY detected_at DESC`, anomalyColumns, strings.Join(placeholders, ", "))

	return r.list(ctx, query, args...)
}

func (r *AnomalyRepository) list(ctx context.Context, query string, args ...interface{}) ([]*anomaly.UsageAnomaly, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list anomalies", err)
	}
	defer rows.Close()

	anomalies := []*anomaly.UsageAnomaly{}
	for rows.Next() {
		a, err := scanAnomaly(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan anomaly", err)
		}
		anomalies = append(anomalies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to list anomalies", err)
	}

	return anomalies, nil
}
