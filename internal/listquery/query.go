package listquery

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
)

var dialect = goqu.Dialect("postgres")

// Querier is the read side of sqlx used by Find
type Querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Expander fills relation fields on a loaded page
type Expander[T any] func(ctx context.Context, items []T) error

// Options narrows and enriches a Find call
type Options[T any] struct {
	// Scope is ANDed with the parsed filters (e.g. a parent id)
	Scope  goqu.Ex
	Expand []Expander[T]
}

// Result is one page of a list query
type Result[T any] struct {
	Items      []T
	Total      int
	Pagination Pagination
	Params     Params
}

// Find counts every row matching the filters, then loads the requested page
// and runs the expanders on it.
func Find[T any](ctx context.Context, db Querier, res Resource, params Params, opts Options[T]) (*Result[T], error) {
	base := dialect.From(res.Table).Prepared(true)
	if len(opts.Scope) > 0 {
		base = base.Where(opts.Scope)
	}
	for _, f := range params.Filters {
		base = base.Where(f.expression())
	}

	countSQL, countArgs, err := base.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := db.GetContext(ctx, &total, countSQL, countArgs...); err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", res.Table, err)
	}

	columns := make([]interface{}, len(res.Columns))
	for i, c := range res.Columns {
		columns[i] = c
	}

	ds := base.Select(columns...)
	for _, o := range params.Order {
		if o.Descending {
			ds = ds.OrderAppend(goqu.I(o.Column).Desc())
		} else {
			ds = ds.OrderAppend(goqu.I(o.Column).Asc())
		}
	}
	ds = ds.OrderAppend(goqu.I("id").Asc()).
		Limit(uint(params.PerPage)).
		Offset(uint(params.Offset()))

	listSQL, listArgs, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	items := make([]T, 0, params.PerPage)
	if params.Offset() < total {
		if err := db.SelectContext(ctx, &items, listSQL, listArgs...); err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", res.Table, err)
		}
	}

	if len(items) > 0 {
		for _, expand := range opts.Expand {
			if err := expand(ctx, items); err != nil {
				return nil, fmt.Errorf("failed to expand %s: %w", res.Table, err)
			}
		}
	}

	return &Result[T]{
		Items:      items,
		Total:      total,
		Pagination: Paginate(params.Page, params.PerPage, total),
		Params:     params,
	}, nil
}

func (f Filter) expression() exp.Expression {
	col := goqu.C(f.Column)
	switch f.Op {
	case OpGt:
		return col.Gt(f.Values[0])
	case OpGte:
		return col.Gte(f.Values[0])
	case OpLt:
		return col.Lt(f.Values[0])
	case OpLte:
		return col.Lte(f.Values[0])
	case OpIn:
		return col.In(f.Values...)
	default:
		return col.Eq(f.Values[0])
	}
}
