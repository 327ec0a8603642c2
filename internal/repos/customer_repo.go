package repos

import (
	"context"

	"erpbridge/internal/domain"
	"erpbridge/internal/normalize"
	"erpbridge/internal/querylog"
)

type CustomerRepo struct {
	pool    *Pool
	dialect Dialect
	log     *querylog.Log
	limit   int
}

func NewCustomerRepo(pool *Pool, d Dialect, ql *querylog.Log, limit int) *CustomerRepo {
	return &CustomerRepo{pool: pool, dialect: d, log: ql, limit: limit}
}

func (r *CustomerRepo) List(ctx context.Context) ([]domain.Customer, error) {
	q := r.dialect.TopN(r.limit, `
    CodClie AS id,
    Descrip AS name,
    ID3 AS taxId,
    Direc1 AS address,
    LimiteCred AS creditLimit`,
		r.dialect.Table("sacli"), "", "Descrip ASC")
	rows, err := selectRows(ctx, r.pool, r.log, "customers.list", q)
	if err != nil {
		return nil, err
	}
	return normalize.Customers(rows), nil
}
