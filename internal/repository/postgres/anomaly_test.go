package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
	"github.com/pratik-mahalle/usagepulse/internal/testutil"
)

var detected = time.Date(2026, 10, 10, 6, 0, 0, 0, time.UTC)

func newAnomaly(id string, sev anomaly.Severity, t anomaly.Type, at time.Time) *anomaly.UsageAnomaly {
	return &anomaly.UsageAnomaly{
		ID:               id,
		CustomerID:       "acme",
		MetricType:       usage.MetricDAU,
		AnomalyType:      t,
		Severity:         sev,
		BaselineValue:    100,
		ActualValue:      25,
		DeviationPercent: -75,
		ZScore:           f(-7.5),
		DetectedAt:       at,
		PossibleCause:    "Significant usage decline",
		Metadata:         map[string]interface{}{"sample_count": 30},
	}
}

func seedAnomalies(t *testing.T, repo anomaly.Repository) {
	t.Helper()
	require.NoError(t, repo.CreateBatch(context.Background(), []*anomaly.UsageAnomaly{
		newAnomaly("a-1", anomaly.SeverityCritical, anomaly.TypeDrop, detected),
		newAnomaly("a-2", anomaly.SeverityInfo, anomaly.TypeSpike, detected.Add(time.Hour)),
		newAnomaly("a-3", anomaly.SeverityWarning, anomaly.TypePatternChange, detected.AddDate(0, 0, -20)),
	}))
}

func TestAnomalyRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewAnomalyRepository(db)
	seedAnomalies(t, repo)

	got, err := repo.GetByID(context.Background(), "a-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, anomaly.SeverityCritical, got.Severity)
	assert.Equal(t, -7.5, *got.ZScore)
	assert.Equal(t, float64(30), got.Metadata["sample_count"])
	assert.Empty(t, got.AffectedFeature)
	assert.False(t, got.IsDismissed())
	assert.True(t, got.DetectedAt.Equal(detected))

	missing, err := repo.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAnomalyRepository_ListByCustomer(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewAnomalyRepository(db)
	seedAnomalies(t, repo)
	_, err := repo.Dismiss(context.Background(), "a-2", "user-1", detected.Add(2*time.Hour))
	require.NoError(t, err)

	since := detected.AddDate(0, 0, -7)

	tests := []struct {
		name    string
		filter  anomaly.Filter
		wantIDs []string
	}{
		{name: "default hides dismissed", filter: anomaly.Filter{}, wantIDs: []string{"a-1", "a-3"}},
		{name: "include dismissed newest first", filter: anomaly.Filter{IncludeDismissed: true}, wantIDs: []string{"a-2", "a-1", "a-3"}},
		{name: "by severity", filter: anomaly.Filter{Severity: anomaly.SeverityWarning}, wantIDs: []string{"a-3"}},
		{name: "by type", filter: anomaly.Filter{Type: anomaly.TypeDrop}, wantIDs: []string{"a-1"}},
		{name: "since", filter: anomaly.Filter{Since: &since, IncludeDismissed: true}, wantIDs: []string{"a-2", "a-1"}},
		{name: "limit", filter: anomaly.Filter{IncludeDismissed: true, Limit: 1}, wantIDs: []string{"a-2"}},
		{name: "metric type", filter: anomaly.Filter{MetricType: usage.MetricWAU}, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := repo.ListByCustomer(context.Background(), "acme", tt.filter)
			require.NoError(t, err)

			ids := []string{}
			for _, a := range list {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestAnomalyRepository_DismissOnce(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewAnomalyRepository(db)
	seedAnomalies(t, repo)
	ctx := context.Background()

	first := detected.Add(time.Hour)
	changed, err := repo.Dismiss(ctx, "a-1", "alice", first)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Dismiss(ctx, "a-1", "bob", first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := repo.GetByID(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.DismissedBy)
	require.NotNil(t, got.DismissedAt)
	assert.True(t, got.DismissedAt.Equal(first))
}

func TestAnomalyRepository_ListActive(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewAnomalyRepository(db)
	seedAnomalies(t, repo)
	ctx := context.Background()

	active, err := repo.ListActive(ctx, "acme", anomaly.SeverityWarning.AtLeast(), detected.AddDate(0, 0, -14))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a-1", active[0].ID)

	_, err = repo.Dismiss(ctx, "a-1", "alice", detected)
	require.NoError(t, err)

	active, err = repo.ListActive(ctx, "acme", anomaly.SeverityWarning.AtLeast(), detected.AddDate(0, 0, -14))
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestAnomalyRepository_CreateBatchRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO usage_anomalies")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	repo := NewAnomalyRepository(db)
	err = repo.CreateBatch(context.Background(), []*anomaly.UsageAnomaly{
		newAnomaly("a-1", anomaly.SeverityCritical, anomaly.TypeDrop, detected),
		newAnomaly("a-2", anomaly.SeverityInfo, anomaly.TypeSpike, detected),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to create anomaly")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnomalyRepository_CreateBatchEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewAnomalyRepository(db).CreateBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnomalyRepository_DismissDatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE usage_anomalies SET dismissed_at").
		WithArgs(sqlmock.AnyArg(), "alice", "a-1").
		WillReturnError(errors.New("connection reset"))

	changed, err := NewAnomalyRepository(db).Dismiss(context.Background(), "a-1", "alice", detected)
	require.Error(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
