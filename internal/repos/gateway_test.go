package repos_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erpbridge/internal/domain"
	"erpbridge/internal/querylog"
	"erpbridge/internal/repos"
)

var lite = repos.Dialect{Driver: "sqlite"}

func TestProductRepoListsInStockByName(t *testing.T) {
	ql := querylog.New(querylog.DefaultCapacity)
	r := repos.NewProductRepo(newPool(t), lite, ql, 100)

	got, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 4) // RAT-202 has no stock

	names := []string{}
	for _, p := range got {
		assert.Greater(t, p.Stock, 0)
		assert.Equal(t, p.ID, p.Code)
		names = append(names, p.Name)
	}
	assert.IsIncreasing(t, names)

	assert.Equal(t, "Impresora laser", got[0].Name)
	assert.Equal(t, 229.0, got[0].Price)
	assert.Equal(t, 3, got[0].Stock)
	assert.Equal(t, "OFICINA", got[0].Category)

	entries := ql.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, querylog.Select, entries[0].Type)
	assert.Contains(t, entries[0].Query, "FROM saprod")
}

func TestProductRepoHonoursLimit(t *testing.T) {
	r := repos.NewProductRepo(newPool(t), lite, querylog.New(0), 2)
	got, err := r.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCustomerRepoList(t *testing.T) {
	r := repos.NewCustomerRepo(newPool(t), lite, querylog.New(0), 200)
	got, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Cliente Contado", got[0].Name)
	assert.Nil(t, got[0].CreditLimit)
	assert.Equal(t, "C001", got[1].ID)
	assert.Equal(t, "J-30111222-1", got[1].TaxID)
	assert.Equal(t, "Av. Bolivar 12", got[1].Address)
	require.NotNil(t, got[1].CreditLimit)
	assert.Equal(t, 5000.0, *got[1].CreditLimit)
}

func TestRepoQueryFailure(t *testing.T) {
	ql := querylog.New(0)
	// wrong prefix -> table does not exist
	r := repos.NewProductRepo(newPool(t), repos.Dialect{Driver: "sqlite", Prefix: "missing_"}, ql, 10)

	_, err := r.List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQueryFailed)
	assert.Contains(t, err.Error(), "missing_saprod")
	assert.Equal(t, querylog.Error, ql.Entries()[0].Type)
}

func TestOrderRepoInsert(t *testing.T) {
	pool := newPool(t)
	ql := querylog.New(0)
	r := repos.NewOrderRepo(pool, lite, ql)

	in := domain.Order{
		ID:           "PED-12345",
		CustomerID:   "C001",
		CustomerName: "Comercial Andina",
		Items: []domain.CartItem{
			{Product: domain.Product{ID: "LAP-001", Name: "Laptop", Price: 999}, Quantity: 2},
			{Product: domain.Product{ID: "TEC-101", Name: "Teclado", Price: 59.5}, Quantity: 1},
		},
		Total: 2057.5,
	}
	out, err := r.Insert(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderProcessed, out.Status)
	assert.False(t, out.Date.IsZero())
	assert.Equal(t, in.Items, out.Items)

	row, err := r.Get(context.Background(), "PED-12345")
	require.NoError(t, err)
	assert.Equal(t, "C001", row.CustomerID)
	assert.Equal(t, 2057.5, row.Total)
	assert.Equal(t, "Processed", row.Status)

	db, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	var lines int
	require.NoError(t, db.Get(&lines, `SELECT COUNT(*) FROM saitemfac WHERE NumeroD = ?`, "PED-12345"))
	assert.Equal(t, 2, lines)

	assert.Equal(t, querylog.Insert, ql.Entries()[0].Type)
}

func TestOrderRepoDuplicateIDRollsBack(t *testing.T) {
	pool := newPool(t)
	r := repos.NewOrderRepo(pool, lite, querylog.New(0))
	o := domain.Order{ID: "PED-11111", CustomerID: "C001", Total: 10,
		Items: []domain.CartItem{{Product: domain.Product{ID: "X", Price: 10}, Quantity: 1}}}

	_, err := r.Insert(context.Background(), o)
	require.NoError(t, err)

	o.Items = append(o.Items, domain.CartItem{Product: domain.Product{ID: "Y", Price: 1}, Quantity: 1})
	_, err = r.Insert(context.Background(), o)
	assert.ErrorIs(t, err, domain.ErrQueryFailed)

	db, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	var lines int
	require.NoError(t, db.Get(&lines, `SELECT COUNT(*) FROM saitemfac WHERE NumeroD = ?`, "PED-11111"))
	assert.Equal(t, 1, lines)
}

func TestOrderRepoGetMissing(t *testing.T) {
	r := repos.NewOrderRepo(newPool(t), lite, querylog.New(0))
	_, err := r.Get(context.Background(), "PED-00000")
	assert.ErrorIs(t, err, domain.ErrQueryFailed)
}
