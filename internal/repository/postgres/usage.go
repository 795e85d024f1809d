package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/errors"
)

const snapshotColumns = `customer_id, captured_at, dau, wau, mau, total_events, api_calls, session_duration, feature_usage`

type UsageRepository struct {
	db *sql.DB
}

func NewUsageRepository(db *sql.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// snapshotRow mirrors a usage_snapshots row
type snapshotRow struct {
	CustomerID      string
	CapturedAt      string
	DAU             sql.NullFloat64
	WAU             sql.NullFloat64
	MAU             sql.NullFloat64
	TotalEvents     sql.NullFloat64
	APICalls        sql.NullFloat64
	SessionDuration sql.NullFloat64
	FeatureUsage    sql.NullString
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(s rowScanner) (*usage.Snapshot, error) {
	var row snapshotRow
	if err := s.Scan(&row.CustomerID, &row.CapturedAt, &row.DAU, &row.WAU, &row.MAU,
		&row.TotalEvents, &row.APICalls, &row.SessionDuration, &row.FeatureUsage); err != nil {
		return nil, err
	}
	return row.toSnapshot()
}

func (r snapshotRow) toSnapshot() (*usage.Snapshot, error) {
	features, err := decodeJSON[float64](r.FeatureUsage)
	if err != nil {
		return nil, err
	}
	return &usage.Snapshot{
		CustomerID:      r.CustomerID,
		Timestamp:       parseTime(r.CapturedAt),
		DAU:             floatPtr(r.DAU),
		WAU:             floatPtr(r.WAU),
		MAU:             floatPtr(r.MAU),
		TotalEvents:     floatPtr(r.TotalEvents),
		APICalls:        floatPtr(r.APICalls),
		SessionDuration: floatPtr(r.SessionDuration),
		FeatureUsage:    features,
	}, nil
}

func (r *UsageRepository) GetLatest(ctx context.Context, customerID string) (*usage.Snapshot, error) {
	defer observe("select", "usage_snapshots", time.Now())

	query := `SELECT ` + snapshotColumns + ` FROM usage_snapshots WHERE customer_id = $1 ORDER BY captured_at DESC LIMIT 1`

	s, err := scanSnapshot(r.db.QueryRowContext(ctx, query, customerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get latest usage snapshot", err)
	}
	return s, nil
}

func (r *UsageRepository) GetPrevious(ctx context.Context, customerID string, before time.Time) (*usage.Snapshot, error) {
	defer observe("select", "usage_snapshots", time.Now())

	query := `SELECT ` + snapshotColumns + ` FROM usage_snapshots WHERE customer_id = $1 AND captured_at < $2 ORDER BY captured_at DESC LIMIT 1`

	s, err := scanSnapshot(r.db.QueryRowContext(ctx, query, customerID, formatTime(before)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get previous usage snapshot", err)
	}
	return s, nil
}

func (r *UsageRepository) GetHistory(ctx context.Context, customerID string, since time.Time) ([]usage.Snapshot, error) {
	defer observe("select", "usage_snapshots", time.Now())

	query := `SELECT ` + snapshotColumns + ` FROM usage_snapshots WHERE customer_id = $1 AND captured_at >= $2 ORDER BY captured_at ASC`

	rows, err := r.db.QueryContext(ctx, query, customerID, formatTime(since))
	if err != nil {
		return nil, errors.DatabaseError("Failed to list usage history", err)
	}
	defer rows.Close()

	var snapshots []usage.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan usage snapshot", err)
		}
		snapshots = append(snapshots, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to list usage history", err)
	}

	return snapshots, nil
}

// Record inserts or replaces a snapshot. Used to load usage exports and by tests.
func (r *UsageRepository) Record(ctx context.Context, s *usage.Snapshot) error {
	defer observe("insert", "usage_snapshots", time.Now())

	features, err := encodeJSON(s.FeatureUsage)
	if err != nil {
		return errors.Internal("Failed to encode feature usage", err)
	}

	query := `INSERT INTO usage_snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (customer_id, captured_at) DO UPDATE SET
			dau = excluded.dau, wau = excluded.wau, mau = excluded.mau,
			total_events = excluded.total_events, api_calls = excluded.api_calls,
			session_duration = excluded.session_duration, feature_usage = excluded.feature_usage`

	_, err = r.db.ExecContext(ctx, query, s.CustomerID, formatTime(s.Timestamp),
		nullableFloat(s.DAU), nullableFloat(s.WAU), nullableFloat(s.MAU),
		nullableFloat(s.TotalEvents), nullableFloat(s.APICalls), nullableFloat(s.SessionDuration),
		features)
	if err != nil {
		return errors.DatabaseError("Failed to record usage snapshot", err)
	}
	return nil
}
