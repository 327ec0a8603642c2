package repos

import (
	"context"
	"strings"
	"time"

	"erpbridge/internal/domain"
	applog "erpbridge/internal/log"
	"erpbridge/internal/normalize"
	"erpbridge/internal/querylog"
)

// selectRows runs one read-only gateway query and returns its rows as maps so
// the normalizer can absorb column naming drift.
func selectRows(ctx context.Context, pool *Pool, ql *querylog.Log, op, query string) ([]normalize.Row, error) {
	db, err := pool.Acquire(ctx)
	if err != nil {
		ql.Add(querylog.Error, op+": "+err.Error())
		return nil, err
	}

	ql.Add(querylog.Select, "SQL: "+compact(query))
	start := time.Now()
	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, queryFailed(pool, ql, op, start, err)
	}
	defer rows.Close()

	out := []normalize.Row{}
	for rows.Next() {
		m := map[string]any{}
		if err := rows.MapScan(m); err != nil {
			return nil, queryFailed(pool, ql, op, start, err)
		}
		out = append(out, normalize.Row(m))
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed(pool, ql, op, start, err)
	}
	applog.Timed(nil, op, time.Since(start), nil, map[string]any{"rows": len(out)})
	return out, nil
}

func queryFailed(pool *Pool, ql *querylog.Log, op string, start time.Time, err error) error {
	ql.Add(querylog.Error, op+": "+err.Error())
	applog.Timed(nil, op, time.Since(start), err, nil)
	pool.Invalidate(err)
	return &domain.QueryError{Op: op, Err: err}
}

// compact folds a multi-line statement onto one line for the query log.
func compact(q string) string {
	return strings.Join(strings.Fields(q), " ")
}
