package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/pratik-mahalle/usagepulse/internal/domain/baseline"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/errors"
)

const baselineColumns = `customer_id, metric_type, mean, std_dev, median, q1, q3, iqr, sample_count, seasonal_factors, calculated_at`

type BaselineRepository struct {
	db *sql.DB
}

func NewBaselineRepository(db *sql.DB) baseline.Repository {
	return &BaselineRepository{db: db}
}

func scanBaseline(s rowScanner) (*baseline.CustomerBaseline, error) {
	var b baseline.CustomerBaseline
	var factors sql.NullString
	var calculatedAt string

	err := s.Scan(&b.CustomerID, &b.MetricType, &b.Mean, &b.StdDev, &b.Median,
		&b.Q1, &b.Q3, &b.IQR, &b.SampleCount, &factors, &calculatedAt)
	if err != nil {
		return nil, err
	}

	b.SeasonalFactors, err = decodeJSON[float64](factors)
	if err != nil {
		return nil, err
	}
	b.CalculatedAt = parseTime(calculatedAt)
	return &b, nil
}

func (r *BaselineRepository) Get(ctx context.Context, customerID string, metric usage.MetricType) (*baseline.CustomerBaseline, error) {
	defer observe("select", "customer_baselines", time.Now())

	query := `SELECT ` + baselineColumns + ` FROM customer_baselines WHERE customer_id = $1 AND metric_type = $2`

	b, err := scanBaseline(r.db.QueryRowContext(ctx, query, customerID, string(metric)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get baseline", err)
	}
	return b, nil
}

// Upsert stores b, replacing any baseline for the same customer and metric
func (r *BaselineRepository) Upsert(ctx context.Context, b *baseline.CustomerBaseline) error {
	defer observe("upsert", "customer_baselines", time.Now())

	factors, err := encodeJSON(b.SeasonalFactors)
	if err != nil {
		return errors.Internal("Failed to encode seasonal factors", err)
	}

	query := `INSERT INTO customer_baselines (` + baselineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (customer_id, metric_type) DO UPDATE SET
			mean = excluded.mean, std_dev = excluded.std_dev, median = excluded.median,
			q1 = excluded.q1, q3 = excluded.q3, iqr = excluded.iqr,
			sample_count = excluded.sample_count, seasonal_factors = excluded.seasonal_factors,
			calculated_at = excluded.calculated_at`

	_, err = r.db.ExecContext(ctx, query, b.CustomerID, string(b.MetricType), b.Mean, b.StdDev, b.Median,
		b.Q1, b.Q3, b.IQR, b.SampleCount, factors, formatTime(b.CalculatedAt))
	if err != nil {
		return errors.DatabaseError("Failed to upsert baseline", err)
	}
	return nil
}

func (r *BaselineRepository) ListByCustomer(ctx context.Context, customerID string) ([]*baseline.CustomerBaseline, error) {
	defer observe("select", "customer_baselines", time.Now())

	query := `SELECT ` + baselineColumns + ` FROM customer_baselines WHERE customer_id = $1 ORDER BY metric_type ASC`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list baselines", err)
	}
	defer rows.Close()

	var baselines []*baseline.CustomerBaseline
	for rows.Next() {
		b, err := scanBaseline(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan baseline", err)
		}
		baselines = append(baselines, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to list baselines", err)
	}

	return baselines, nil
}
