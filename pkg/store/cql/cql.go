package cql

import (
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kvplan/kvplan/pkg/predicate"
	"github.com/kvplan/kvplan/pkg/regexp"
	"github.com/kvplan/kvplan/pkg/store"
)

const DefaultCacheSize = 256

// ErrEmptyRange is returned for a query containing an empty interval. No
// statement can express it and no statement needs to be issued.
var ErrEmptyRange = errors.New("query contains an empty range")

// Statement is CQL text with positional bind values.
type Statement struct {
	CQL    string
	Values []any
}

func (s Statement) String() string {
	return s.CQL
}

// Renderer renders physical range queries for one table as CQL. Statement
// text depends only on the shape of the query and is cached by shape.
type Renderer struct {
	table   string
	columns []string
	cache   *lru.Cache[string, string]
}

func NewRenderer(table string, columns []string, cacheSize int) (*Renderer, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Renderer{table: table, columns: columns, cache: cache}, nil
}

// Select renders q as a SELECT statement.
func (r *Renderer) Select(q store.RangeQuery) (Statement, error) {
	values, shape, err := bindValues(q.Predicates)
	if err != nil {
		return Statement{}, err
	}

	var sb strings.Builder
	sb.WriteString("select|")
	sb.WriteString(shape)
	for _, o := range q.Order {
		sb.WriteString("|" + o.String())
	}
	if q.Limit > 0 {
		sb.WriteString("|limit")
		values = append(values, q.Limit)
	}
	key := sb.String()

	if text, ok := r.cache.Get(key); ok {
		return Statement{CQL: text, Values: values}, nil
	}

	sb.Reset()
	sb.WriteString("SELECT ")
	sb.WriteString(r.selectList())
	sb.WriteString(" FROM ")
	sb.WriteString(QuoteIdent(r.table))
	sb.WriteString(whereClause(q.Predicates))
	if len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			dir := "ASC"
			if o.Descending {
				dir = "DESC"
			}
			parts = append(parts, QuoteIdent(o.Column)+" "+dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
	}

	text := sb.String()
	_ = r.cache.Add(key, text)
	return Statement{CQL: text, Values: values}, nil
}

// Delete renders a range delete over preds.
func (r *Renderer) Delete(preds []*predicate.RangePredicate) (Statement, error) {
	values, shape, err := bindValues(preds)
	if err != nil {
		return Statement{}, err
	}
	key := "delete|" + shape

	if text, ok := r.cache.Get(key); ok {
		return Statement{CQL: text, Values: values}, nil
	}
	text := "DELETE FROM " + QuoteIdent(r.table) + whereClause(preds)
	_ = r.cache.Add(key, text)
	return Statement{CQL: text, Values: values}, nil
}

// CacheLen returns the number of cached statement shapes.
func (r *Renderer) CacheLen() int {
	return r.cache.Len()
}

func (r *Renderer) selectList() string {
	if len(r.columns) == 0 {
		return "*"
	}
	cols := make([]string, 0, len(r.columns))
	for _, c := range r.columns {
		cols = append(cols, QuoteIdent(c))
	}
	return strings.Join(cols, ", ")
}

// bindValues returns the bind values of preds in clause order and a key
// describing the clause shape.
func bindValues(preds []*predicate.RangePredicate) ([]any, string, error) {
	var (
		values []any
		shape  strings.Builder
	)
	for _, p := range preds {
		if p.IsEmpty() {
			return nil, "", fmt.Errorf("%w: %s", ErrEmptyRange, p)
		}
		shape.WriteString(p.Column)
		switch {
		case p.IsExact():
			shape.WriteString("=,")
			values = append(values, p.Start.Interface())
			continue
		case p.Start != nil && p.StartInclusive:
			shape.WriteString(">=")
		case p.Start != nil:
			shape.WriteString(">")
		}
		if p.Start != nil {
			values = append(values, p.Start.Interface())
		}
		switch {
		case p.End != nil && p.EndInclusive:
			shape.WriteString("<=")
		case p.End != nil:
			shape.WriteString("<")
		}
		if p.End != nil {
			values = append(values, p.End.Interface())
		}
		shape.WriteString(",")
	}
	return values, shape.String(), nil
}

func whereClause(preds []*predicate.RangePredicate) string {
	var clauses []string
	for _, p := range preds {
		col := QuoteIdent(p.Column)
		if p.IsExact() {
			clauses = append(clauses, col+" = ?")
			continue
		}
		if p.Start != nil {
			op := " > ?"
			if p.StartInclusive {
				op = " >= ?"
			}
			clauses = append(clauses, col+op)
		}
		if p.End != nil {
			op := " < ?"
			if p.EndInclusive {
				op = " <= ?"
			}
			clauses = append(clauses, col+op)
		}
	}
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

var unquoted *regexp.Regexp

func init() {
	var err error
	unquoted, err = regexp.NewRegexp([]string{`[a-z_][a-z0-9_]*`}, true)
	if err != nil {
		panic(err)
	}
}

// QuoteIdent double quotes identifiers that are not lower case and simple.
func QuoteIdent(name string) string {
	if unquoted.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
