package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/pratik-mahalle/usagepulse/internal/domain/customer"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/errors"
)

type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	defer observe("select", "customers", time.Now())

	query := `SELECT id, name, arr, status FROM customers WHERE id = $1`

	var c customer.Customer
	var arr sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &arr, &c.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get customer", err)
	}

	c.ARR = floatPtr(arr)
	return &c, nil
}

// ListActive returns active and onboarding customers, highest ARR first.
// Customers without an ARR sort last.
func (r *CustomerRepository) ListActive(ctx context.Context) ([]*customer.Customer, error) {
	defer observe("select", "customers", time.Now())

	query := `SELECT id, name, arr, status FROM customers
		WHERE status IN ($1, $2)
		ORDER BY CASE WHEN arr IS NULL THEN 1 ELSE 0 END, arr DESC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, customer.StatusActive, customer.StatusOnboarding)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list customers", err)
	}
	defer rows.Close()

	var customers []*customer.Customer
	for rows.Next() {
		var c customer.Customer
		var arr sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.Name, &arr, &c.Status); err != nil {
			return nil, errors.DatabaseError("Failed to scan customer", err)
		}
		c.ARR = floatPtr(arr)
		customers = append(customers, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to list customers", err)
	}

	return customers, nil
}

// Upsert inserts or updates a customer directory entry
func (r *CustomerRepository) Upsert(ctx context.Context, c *customer.Customer) error {
	defer observe("upsert", "customers", time.Now())

	query := `INSERT INTO customers (id, name, arr, status) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, arr = excluded.arr, status = excluded.status`

	if _, err := r.db.ExecContext(ctx, query, c.ID, c.Name, nullableFloat(c.ARR), c.Status); err != nil {
		return errors.DatabaseError("Failed to upsert customer", err)
	}
	return nil
}
