// Package query turns filter state into a list of predicates against the listings table.
//
// A View maps filter keys to contributor functions. Build folds the view over a
// Filters value, skipping every sentinel ("", "all", "any") in one place, and
// appends the view's fixed predicates and ordering. The store package applies
// the resulting Query to gorm.
package query

// Op is a predicate operator.
type Op string

const (
	OpEq     Op = "eq"
	OpIn     Op = "in"
	OpGte    Op = "gte"
	OpLte    Op = "lte"
	OpSearch Op = "search" // case-insensitive substring, OR-ed across Columns
	// OpUnexpired holds while Column is null or later than the time the query runs.
	OpUnexpired Op = "unexpired"
)

// Predicate is a single condition. Search predicates use Columns instead of Column.
type Predicate struct {
	Column  string   `json:"column,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Op      Op       `json:"op"`
	Value   any      `json:"value"`
}

func Eq(column string, v any) Predicate  { return Predicate{Column: column, Op: OpEq, Value: v} }
func Gte(column string, v any) Predicate { return Predicate{Column: column, Op: OpGte, Value: v} }
func Lte(column string, v any) Predicate { return Predicate{Column: column, Op: OpLte, Value: v} }

func In(column string, vs ...any) Predicate {
	return Predicate{Column: column, Op: OpIn, Value: vs}
}

func Unexpired(column string) Predicate { return Predicate{Column: column, Op: OpUnexpired} }

func Search(term string, columns ...string) Predicate {
	return Predicate{Columns: columns, Op: OpSearch, Value: term}
}

// OrderBy is one ordering term.
type OrderBy struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc"`
}

// Query is a composed read: predicates are ANDed.
type Query struct {
	Predicates []Predicate `json:"predicates"`
	Order      []OrderBy   `json:"order"`
	With       []string    `json:"with,omitempty"` // relations to join
	Limit      int         `json:"limit,omitempty"`
}

// NewestFirst is the default listing order. id breaks created_at ties.
var NewestFirst = []OrderBy{{Column: "created_at", Desc: true}, {Column: "id", Desc: true}}

// Where builds an unordered query from predicates.
func Where(ps ...Predicate) Query {
	return Query{Predicates: ps}
}

// OrderedBy returns a copy of q with the given ordering.
func (q Query) OrderedBy(order ...OrderBy) Query {
	q.Order = append([]OrderBy(nil), order...)
	return q
}

// Joining returns a copy of q that also loads the named relations.
func (q Query) Joining(rel ...string) Query {
	q.With = append(append([]string(nil), q.With...), rel...)
	return q
}
