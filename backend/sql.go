package backend

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// placeholder renders the nth (1-based) bind parameter.
type placeholder func(n int) string

func dollar(n int) string { return "$" + strconv.Itoa(n) }

func question(int) string { return "?" }

func buildSelect(q Query, ph placeholder) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	var b strings.Builder
	args := make([]any, 0, len(q.Filters)+1)
	b.WriteString("SELECT * FROM ")
	b.WriteString(q.Table)
	if len(q.Filters) > 0 {
		b.WriteString(" WHERE ")
		for i, f := range q.Filters {
			if i > 0 {
				b.WriteString(" AND ")
			}
			args = append(args, f.Value)
			fmt.Fprintf(&b, "%s = %s", f.Column, ph(len(args)))
		}
	}
	if len(q.Order) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range q.Order {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(o.Column)
			if o.Desc {
				b.WriteString(" DESC")
			} else {
				b.WriteString(" ASC")
			}
		}
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT %s", ph(len(args)))
	}
	return b.String(), args, nil
}

// sortedColumns keeps generated statements stable across runs.
func sortedColumns(row Row) []string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func buildInsert(table string, row Row, ph placeholder) (string, []any, error) {
	if err := checkIdent("table", table); err != nil {
		return "", nil, err
	}
	if len(row) == 0 {
		return "", nil, fmt.Errorf("insert into %s: empty row", table)
	}
	cols := sortedColumns(row)
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		if err := checkIdent("column", c); err != nil {
			return "", nil, err
		}
		marks[i] = ph(i + 1)
		args[i] = row[c]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	return query, args, nil
}

func buildUpdate(table string, filters []Filter, row Row, ph placeholder) (string, []any, error) {
	if err := checkIdent("table", table); err != nil {
		return "", nil, err
	}
	if len(row) == 0 {
		return "", nil, fmt.Errorf("update %s: empty row", table)
	}
	if len(filters) == 0 {
		return "", nil, fmt.Errorf("update %s: refusing to update without filters", table)
	}
	cols := sortedColumns(row)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(filters))
	for i, c := range cols {
		if err := checkIdent("column", c); err != nil {
			return "", nil, err
		}
		args = append(args, row[c])
		sets[i] = fmt.Sprintf("%s = %s", c, ph(len(args)))
	}
	where := make([]string, len(filters))
	for i, f := range filters {
		if err := checkIdent("column", f.Column); err != nil {
			return "", nil, err
		}
		args = append(args, f.Value)
		where[i] = fmt.Sprintf("%s = %s", f.Column, ph(len(args)))
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(sets, ", "), strings.Join(where, " AND "))
	return query, args, nil
}
