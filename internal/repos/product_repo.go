package repos

import (
	"context"

	"erpbridge/internal/domain"
	"erpbridge/internal/normalize"
	"erpbridge/internal/querylog"
)

type ProductRepo struct {
	pool    *Pool
	dialect Dialect
	log     *querylog.Log
	limit   int
}

func NewProductRepo(pool *Pool, d Dialect, ql *querylog.Log, limit int) *ProductRepo {
	return &ProductRepo{pool: pool, dialect: d, log: ql, limit: limit}
}

func (r *ProductRepo) listSQL() string {
	return r.dialect.TopN(r.limit, `
    CodProd AS id,
    CodProd AS code,
    Descrip AS name,
    Descrip AS description,
    CodInst AS category,
    Precio1 AS price,
    Existen AS stock`,
		r.dialect.Table("saprod"), "Existen > 0", "Descrip ASC")
}

// List returns up to limit in-stock products ordered by name.
func (r *ProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := selectRows(ctx, r.pool, r.log, "products.list", r.listSQL())
	if err != nil {
		return nil, err
	}
	return normalize.Products(rows), nil
}
