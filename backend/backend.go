// Package backend is the data service the site reads blog content from and
// writes admin records to. It speaks in tables, equality filters and orderings
// so the same queries run against a hosted REST endpoint, Postgres or SQLite.
package backend

import (
	"context"
	"fmt"
	"regexp"
)

// Row is one record keyed by column name.
type Row map[string]any

// Filter is an equality predicate.
type Filter struct {
	Column string
	Value  any
}

// Order sorts by one column.
type Order struct {
	Column string
	Desc   bool
}

// Query selects rows from a single table.
type Query struct {
	Table   string
	Filters []Filter
	Order   []Order
	Limit   int
}

// Backend is implemented by REST, Postgres and SQLite.
type Backend interface {
	Select(ctx context.Context, q Query) ([]Row, error)
	Insert(ctx context.Context, table string, row Row) error
	Update(ctx context.Context, table string, filters []Filter, row Row) error
	Close() error
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

// Asc orders ascending by column.
func Asc(column string) Order {
	return Order{Column: column}
}

// Desc orders descending by column.
func Desc(column string) Order {
	return Order{Column: column, Desc: true}
}

var validIdent = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func checkIdent(kind, name string) error {
	if !validIdent.MatchString(name) {
		return fmt.Errorf("invalid %s name %q", kind, name)
	}
	return nil
}

// Validate rejects identifiers that could not be safely interpolated.
func (q Query) Validate() error {
	if err := checkIdent("table", q.Table); err != nil {
		return err
	}
	for _, f := range q.Filters {
		if err := checkIdent("column", f.Column); err != nil {
			return err
		}
	}
	for _, o := range q.Order {
		if err := checkIdent("column", o.Column); err != nil {
			return err
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("limit must be >= 0")
	}
	return nil
}
