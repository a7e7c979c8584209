package postgres

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// listQuery appends the time window and paging of opts to base, which must
// already contain a WHERE clause. col is the timestamp column filtered and
// ordered on, newest first.
type listQuery struct {
	sb   strings.Builder
	args []any
}

func newListQuery(base string, args ...any) *listQuery {
	q := &listQuery{args: args}
	q.sb.WriteString(base)
	return q
}

func (q *listQuery) arg(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *listQuery) window(col string, opts domain.ListOpts) *listQuery {
	if opts.Since != nil {
		fmt.Fprintf(&q.sb, " AND %s >= %s", col, q.arg(*opts.Since))
	}
	if opts.Until != nil {
		fmt.Fprintf(&q.sb, " AND %s <= %s", col, q.arg(*opts.Until))
	}
	fmt.Fprintf(&q.sb, " ORDER BY %s DESC", col)
	if opts.Limit > 0 {
		fmt.Fprintf(&q.sb, " LIMIT %s", q.arg(opts.Limit))
	}
	if opts.Offset > 0 {
		fmt.Fprintf(&q.sb, " OFFSET %s", q.arg(opts.Offset))
	}
	return q
}

func (q *listQuery) String() string { return q.sb.String() }
