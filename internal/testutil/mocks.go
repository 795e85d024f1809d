package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
	"github.com/pratik-mahalle/usagepulse/internal/domain/baseline"
	"github.com/pratik-mahalle/usagepulse/internal/domain/customer"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
	"github.com/pratik-mahalle/usagepulse/internal/trigger"
)

// MockCustomerRepository is a mock implementation of customer.Repository
type MockCustomerRepository struct {
	mu        sync.Mutex
	Customers map[string]*customer.Customer
	GetError  error
	ListError error
}

func NewMockCustomerRepository(customers ...*customer.Customer) *MockCustomerRepository {
	m := &MockCustomerRepository{Customers: make(map[string]*customer.Customer)}
	for _, c := range customers {
		m.Customers[c.ID] = c
	}
	return m
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	return m.Customers[id], nil
}

func (m *MockCustomerRepository) ListActive(ctx context.Context) ([]*customer.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}

	var out []*customer.Customer
	for _, c := range m.Customers {
		if c.IsScannable() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := arr(out[i]), arr(out[j])
		if ai != aj {
			return ai > aj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func arr(c *customer.Customer) float64 {
	if c.ARR == nil {
		return -1
	}
	return *c.ARR
}

// MockUsageRepository is a mock implementation of usage.Repository.
// Snapshots are kept per customer in insertion order; Add keeps them sorted by time.
type MockUsageRepository struct {
	mu        sync.Mutex
	Snapshots map[string][]usage.Snapshot
	GetError  error
	// FailFor makes every lookup for the listed customers return GetError
	FailFor map[string]bool
	// Delay blocks lookups for the listed customers until the context ends or the delay passes
	Delay map[string]time.Duration
}

func NewMockUsageRepository() *MockUsageRepository {
	return &MockUsageRepository{
		Snapshots: make(map[string][]usage.Snapshot),
		FailFor:   make(map[string]bool),
		Delay:     make(map[string]time.Duration),
	}
}

// Add stores a snapshot
func (m *MockUsageRepository) Add(s usage.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append(m.Snapshots[s.CustomerID], s)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Timestamp.Before(list[j].Timestamp) })
	m.Snapshots[s.CustomerID] = list
}

func (m *MockUsageRepository) lookup(ctx context.Context, customerID string) ([]usage.Snapshot, error) {
	m.mu.Lock()
	delay := m.Delay[customerID]
	fail := m.FailFor[customerID] || (m.GetError != nil && len(m.FailFor) == 0)
	err := m.GetError
	list := m.Snapshots[customerID]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, err
	}
	return list, nil
}

func (m *MockUsageRepository) GetLatest(ctx context.Context, customerID string) (*usage.Snapshot, error) {
	list, err := m.lookup(ctx, customerID)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	s := list[len(list)-1]
	return &s, nil
}

func (m *MockUsageRepository) GetPrevious(ctx context.Context, customerID string, before time.Time) (*usage.Snapshot, error) {
	list, err := m.lookup(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Timestamp.Before(before) {
			s := list[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (m *MockUsageRepository) GetHistory(ctx context.Context, customerID string, since time.Time) ([]usage.Snapshot, error) {
	list, err := m.lookup(ctx, customerID)
	if err != nil {
		return nil, err
	}
	var out []usage.Snapshot
	for _, s := range list {
		if !s.Timestamp.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

// MockBaselineRepository is a mock implementation of baseline.Repository
type MockBaselineRepository struct {
	mu          sync.Mutex
	Baselines   map[string]*baseline.CustomerBaseline
	UpsertCount int
	GetError    error
	UpsertError error
}

func NewMockBaselineRepository() *MockBaselineRepository {
	return &MockBaselineRepository{Baselines: make(map[string]*baseline.CustomerBaseline)}
}

func baselineKey(customerID string, metric usage.MetricType) string {
	return customerID + "/" + string(metric)
}

func (m *MockBaselineRepository) Get(ctx context.Context, customerID string, metric usage.MetricType) (*baseline.CustomerBaseline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	return m.Baselines[baselineKey(customerID, metric)], nil
}

func (m *MockBaselineRepository) Upsert(ctx context.Context, b *baseline.CustomerBaseline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.UpsertCount++
	m.Baselines[baselineKey(b.CustomerID, b.MetricType)] = b
	return nil
}

func (m *MockBaselineRepository) ListByCustomer(ctx context.Context, customerID string) ([]*baseline.CustomerBaseline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	var out []*baseline.CustomerBaseline
	for _, b := range m.Baselines {
		if b.CustomerID == customerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetricType < out[j].MetricType })
	return out, nil
}

// MockBaselineCache is a mock implementation of baseline.Cache
type MockBaselineCache struct {
	mu       sync.Mutex
	Entries  map[string]*baseline.CustomerBaseline
	Hits     int
	GetError error
	SetError error
}

func NewMockBaselineCache() *MockBaselineCache {
	return &MockBaselineCache{Entries: make(map[string]*baseline.CustomerBaseline)}
}

func (m *MockBaselineCache) Get(ctx context.Context, customerID string, metric usage.MetricType) (*baseline.CustomerBaseline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	b := m.Entries[baselineKey(customerID, metric)]
	if b != nil {
		m.Hits++
	}
	return b, nil
}

func (m *MockBaselineCache) Set(ctx context.Context, b *baseline.CustomerBaseline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetError != nil {
		return m.SetError
	}
	m.Entries[baselineKey(b.CustomerID, b.MetricType)] = b
	return nil
}

// MockAnomalyRepository is a mock implementation of anomaly.Repository
type MockAnomalyRepository struct {
	mu          sync.Mutex
	Anomalies   map[string]*anomaly.UsageAnomaly
	Batches     int
	CreateError error
	GetError    error
}

func NewMockAnomalyRepository() *MockAnomalyRepository {
	return &MockAnomalyRepository{Anomalies: make(map[string]*anomaly.UsageAnomaly)}
}

func (m *MockAnomalyRepository) CreateBatch(ctx context.Context, anomalies []*anomaly.UsageAnomaly) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	if len(anomalies) == 0 {
		return nil
	}
	m.Batches++
	for _, a := range anomalies {
		cp := *a
		m.Anomalies[a.ID] = &cp
	}
	return nil
}

func (m *MockAnomalyRepository) GetByID(ctx context.Context, id string) (*anomaly.UsageAnomaly, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	a, ok := m.Anomalies[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *MockAnomalyRepository) ListByCustomer(ctx context.Context, customerID string, filter anomaly.Filter) ([]*anomaly.UsageAnomaly, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}

	out := []*anomaly.UsageAnomaly{}
	for _, a := range m.Anomalies {
		switch {
		case a.CustomerID != customerID,
			filter.Type != "" && a.AnomalyType != filter.Type,
			filter.Severity != "" && a.Severity != filter.Severity,
			filter.MetricType != "" && a.MetricType != filter.MetricType,
			filter.Since != nil && a.DetectedAt.Before(*filter.Since),
			!filter.IncludeDismissed && a.IsDismissed():
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })

	limit := filter.Limit
	if limit <= 0 {
		limit = anomaly.DefaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockAnomalyRepository) Dismiss(ctx context.Context, id, userID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Anomalies[id]
	if !ok || a.IsDismissed() {
		return false, nil
	}
	a.DismissedAt = &at
	a.DismissedBy = userID
	return true, nil
}

func (m *MockAnomalyRepository) ListActive(ctx context.Context, customerID string, severities []anomaly.Severity, since time.Time) ([]*anomaly.UsageAnomaly, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}

	var out []*anomaly.UsageAnomaly
	for _, a := range m.Anomalies {
		if a.CustomerID != customerID || a.IsDismissed() || a.DetectedAt.Before(since) {
			continue
		}
		for _, s := range severities {
			if a.Severity == s {
				out = append(out, a)
				break
			}
		}
	}
	return out, nil
}

// ForCustomer returns the stored anomalies of one customer
func (m *MockAnomalyRepository) ForCustomer(customerID string) []*anomaly.UsageAnomaly {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*anomaly.UsageAnomaly
	for _, a := range m.Anomalies {
		if a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	return out
}

// MockPublisher records published trigger events
type MockPublisher struct {
	mu           sync.Mutex
	Events       []trigger.Event
	PublishError error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, event trigger.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return m.PublishError
}

// Published returns a copy of the recorded events
func (m *MockPublisher) Published() []trigger.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]trigger.Event(nil), m.Events...)
}
