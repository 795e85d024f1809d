package services

import (
	"time"

	"github.com/pratik-mahalle/usagepulse/internal/domain/customer"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/logger"
	"github.com/pratik-mahalle/usagepulse/internal/testutil"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func ptr(v float64) *float64 { return &v }

// steadyDAU is 29 days alternating 95/105 followed by current
func steadyDAU(current float64) []float64 {
	values := make([]float64, 0, 30)
	for i := 0; i < 29; i++ {
		if i%2 == 0 {
			values = append(values, 95)
		} else {
			values = append(values, 105)
		}
	}
	return append(values, current)
}

// seedDAU stores one daily snapshot per value, the last one taken just now
func seedDAU(repo *testutil.MockUsageRepository, customerID string, values []float64) {
	latest := time.Now().Add(-time.Minute)
	for i, v := range values {
		repo.Add(usage.Snapshot{
			CustomerID: customerID,
			Timestamp:  latest.AddDate(0, 0, -(len(values) - 1 - i)),
			DAU:        ptr(v),
		})
	}
}

type fixture struct {
	customers *testutil.MockCustomerRepository
	usage     *testutil.MockUsageRepository
	baselines *testutil.MockBaselineRepository
	anomalies *testutil.MockAnomalyRepository
	publisher *testutil.MockPublisher
}

func newFixture(customers ...*customer.Customer) *fixture {
	return &fixture{
		customers: testutil.NewMockCustomerRepository(customers...),
		usage:     testutil.NewMockUsageRepository(),
		baselines: testutil.NewMockBaselineRepository(),
		anomalies: testutil.NewMockAnomalyRepository(),
		publisher: testutil.NewMockPublisher(),
	}
}

func (f *fixture) service(opts ...AnomalyServiceOption) *AnomalyService {
	log := testLogger()
	baselines := NewBaselineService(f.baselines, f.usage, nil, log)
	return NewAnomalyService(f.customers, f.usage, f.anomalies, baselines, f.publisher, log, opts...).(*AnomalyService)
}

func activeCustomer(id string, arr float64) *customer.Customer {
	return &customer.Customer{ID: id, Name: id + " Inc", ARR: ptr(arr), Status: customer.StatusActive}
}
