// Package sqlxrepos implements the core repositories on postgres via sqlx.
package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/utetezi/core"
)

// getExec returns the per-call executor override when provided, falling back
// to the repository's own. Services pass a transaction here to make multiple
// repository calls atomic.
func getExec(repoExec core.DBExecutor, svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repoExec
}

// nextCode draws the next value off seq and renders it as an entity code,
// eg. "DEF0042". Codes grow past 4 digits instead of wrapping.
func nextCode(ctx context.Context, exec core.DBExecutor, seq, prefix string) (string, error) {
	var n int64
	row := exec.QueryRowxContext(ctx, fmt.Sprintf("SELECT nextval('%s')", seq))
	if err := row.Scan(&n); err != nil {
		return "", errors.Wrapf(err, "drawing next %s", seq)
	}
	return fmt.Sprintf("%s%04d", prefix, n), nil
}

// isUniqueViolation reports whether err is a psql duplicate key error on the
// given constraint; an empty constraint matches any.
func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok || pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func sqlxIn(query string, args ...interface{}) (string, []interface{}, error) {
	return sqlx.In(query, args...)
}

func selectContext(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, exec, dest, query, args...)
}

func getContext(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, exec, dest, query, args...)
}

// ordering renders an ORDER BY clause; empty ordering falls back to def.
func orderingClause(ordering []core.DBOrdering, def string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + def
	}
	parts := make([]string, 0, len(ordering))
	for _, o := range ordering {
		parts = append(parts, o.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
