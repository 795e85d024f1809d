package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/usagepulse/internal/domain/customer"
	"github.com/pratik-mahalle/usagepulse/internal/testutil"
)

func TestCustomerRepository_ListActive(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewCustomerRepository(db)
	ctx := context.Background()

	for _, c := range []*customer.Customer{
		{ID: "small", Name: "Small Co", ARR: f(10000), Status: customer.StatusActive},
		{ID: "big", Name: "Big Co", ARR: f(500000), Status: customer.StatusActive},
		{ID: "new", Name: "New Co", Status: customer.StatusOnboarding},
		{ID: "mid", Name: "Mid Co", ARR: f(80000), Status: customer.StatusOnboarding},
		{ID: "gone", Name: "Gone Co", ARR: f(900000), Status: customer.StatusChurned},
	} {
		require.NoError(t, repo.Upsert(ctx, c))
	}

	customers, err := repo.ListActive(ctx)
	require.NoError(t, err)

	ids := make([]string, len(customers))
	for i, c := range customers {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"big", "mid", "small", "new"}, ids)
	assert.Nil(t, customers[3].ARR)
}

func TestCustomerRepository_GetByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewCustomerRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, &customer.Customer{ID: "acme", Name: "Acme", ARR: f(1200), Status: customer.StatusActive}))

	tests := []struct {
		name     string
		id       string
		wantName string
	}{
		{name: "existing customer", id: "acme", wantName: "Acme"},
		{name: "missing customer", id: "nobody"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := repo.GetByID(ctx, tt.id)
			require.NoError(t, err)
			if tt.wantName == "" {
				assert.Nil(t, c)
				return
			}
			require.NotNil(t, c)
			assert.Equal(t, tt.wantName, c.Name)
			assert.Equal(t, 1200.0, *c.ARR)
		})
	}
}
