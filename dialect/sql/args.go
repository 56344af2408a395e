package sql

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// expandArgs widens every slice-valued argument into one placeholder per
// element. The expression layer binds an IN list as a single argument; real
// drivers cannot bind a slice, so the expansion happens here at the
// execution boundary.
func expandArgs(query string, args []any) (string, []any, error) {
	expand := false
	for _, a := range args {
		if isSliceArg(a) {
			expand = true
			break
		}
	}
	if !expand {
		return query, args, nil
	}
	var (
		b    strings.Builder
		out  = make([]any, 0, len(args))
		next = 0
	)
	b.Grow(len(query))
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		if next >= len(args) {
			return "", nil, fmt.Errorf("sql: more placeholders than arguments in %q", query)
		}
		arg := args[next]
		next++
		if !isSliceArg(arg) {
			b.WriteByte('?')
			out = append(out, arg)
			continue
		}
		v := reflect.ValueOf(arg)
		n := v.Len()
		if n == 0 {
			return "", nil, fmt.Errorf("sql: empty slice bound to IN placeholder")
		}
		b.WriteByte('(')
		for i := 0; i < n; i++ {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('?')
			out = append(out, v.Index(i).Interface())
		}
		b.WriteByte(')')
	}
	if next != len(args) {
		return "", nil, fmt.Errorf("sql: %d arguments for %d placeholders in %q", len(args), next, query)
	}
	return b.String(), out, nil
}

func isSliceArg(arg any) bool {
	if arg == nil {
		return false
	}
	if _, ok := arg.([]byte); ok {
		return false
	}
	if _, ok := arg.(driver.Valuer); ok {
		return false
	}
	return reflect.TypeOf(arg).Kind() == reflect.Slice
}

// rebind rewrites `?` placeholders into the $n form used by postgres.
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}
