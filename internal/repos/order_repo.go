package repos

import (
	"context"
	"fmt"
	"time"

	"erpbridge/internal/domain"
	applog "erpbridge/internal/log"
	"erpbridge/internal/querylog"
)

type OrderRepo struct {
	pool    *Pool
	dialect Dialect
	log     *querylog.Log
	now     func() time.Time
}

func NewOrderRepo(pool *Pool, d Dialect, ql *querylog.Log) *OrderRepo {
	return &OrderRepo{pool: pool, dialect: d, log: ql, now: time.Now}
}

// Insert writes the order header and its lines in one transaction and returns
// the persisted record. A retried insert with a fresh id creates a second order.
func (r *OrderRepo) Insert(ctx context.Context, o domain.Order) (domain.Order, error) {
	const op = "orders.insert"
	db, err := r.pool.Acquire(ctx)
	if err != nil {
		r.log.Add(querylog.Error, op+": "+err.Error())
		return domain.Order{}, err
	}

	o.Date = r.now().UTC().Truncate(time.Second)
	o.Status = domain.OrderProcessed

	r.log.Add(querylog.Insert, fmt.Sprintf("SQL: INSERT INTO %s VALUES ('%s', ...)", r.dialect.Table("safact"), o.ID))
	start := time.Now()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Order{}, queryFailed(r.pool, r.log, op, start, err)
	}
	defer func() { _ = tx.Rollback() }()

	header := db.Rebind(`
	  INSERT INTO ` + r.dialect.Table("safact") + `
	    (NumeroD, CodClie, Descrip, FechaE, MtoTotal, Status)
	  VALUES
	    (?,       ?,       ?,       ?,      ?,        ?)`)
	if _, err := tx.ExecContext(ctx, header,
		o.ID, o.CustomerID, o.CustomerName, o.Date.Format(time.RFC3339), o.Total, string(o.Status)); err != nil {
		return domain.Order{}, queryFailed(r.pool, r.log, op, start, err)
	}

	line := db.Rebind(`
	  INSERT INTO ` + r.dialect.Table("saitemfac") + `(NumeroD, NroLinea, CodItem, Descrip1, Cantidad, Precio)
	  VALUES(?, ?, ?, ?, ?, ?)`)
	for i, it := range o.Items {
		if _, err := tx.ExecContext(ctx, line, o.ID, i+1, it.ID, it.Name, it.Quantity, it.Price); err != nil {
			return domain.Order{}, queryFailed(r.pool, r.log, op, start, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Order{}, queryFailed(r.pool, r.log, op, start, err)
	}
	applog.Timed(nil, op, time.Since(start), nil, map[string]any{"order_id": o.ID, "lines": len(o.Items)})
	return o, nil
}

// OrderRow is a persisted order header.
type OrderRow struct {
	ID           string  `db:"id"`
	CustomerID   string  `db:"customer_id"`
	CustomerName string  `db:"customer_name"`
	Date         string  `db:"date"`
	Total        float64 `db:"total"`
	Status       string  `db:"status"`
}

// Get reads back one order header; used to confirm inserts.
func (r *OrderRepo) Get(ctx context.Context, id string) (OrderRow, error) {
	db, err := r.pool.Acquire(ctx)
	if err != nil {
		return OrderRow{}, err
	}
	var o OrderRow
	err = db.GetContext(ctx, &o, db.Rebind(`
		SELECT NumeroD AS id, CodClie AS customer_id, COALESCE(Descrip,'') AS customer_name,
		       FechaE AS date, MtoTotal AS total, Status AS status
		FROM `+r.dialect.Table("safact")+`
		WHERE NumeroD = ?`), id)
	if err != nil {
		return OrderRow{}, &domain.QueryError{Op: "orders.get", Err: err}
	}
	return o, nil
}
