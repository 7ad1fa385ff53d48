package store

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vikasavnish/listinghub/internal/query"
)

// Apply adds q's predicates, ordering, limit and joins to tx.
func Apply(tx *gorm.DB, q query.Query) *gorm.DB {
	tx = applyPredicates(tx, q.Predicates)
	for _, o := range q.Order {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
	}
	for _, rel := range q.With {
		tx = tx.Preload(rel)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx
}

func applyPredicates(tx *gorm.DB, ps []query.Predicate) *gorm.DB {
	for _, p := range ps {
		col := clause.Column{Name: p.Column}
		switch p.Op {
		case query.OpEq:
			tx = tx.Where(clause.Eq{Column: col, Value: p.Value})
		case query.OpGte:
			tx = tx.Where(clause.Gte{Column: col, Value: p.Value})
		case query.OpLte:
			tx = tx.Where(clause.Lte{Column: col, Value: p.Value})
		case query.OpIn:
			values, _ := p.Value.([]any)
			tx = tx.Where(clause.IN{Column: col, Values: values})
		case query.OpSearch:
			tx = tx.Where(searchCondition(p))
		case query.OpUnexpired:
			tx = tx.Where(clause.Expr{SQL: "(? IS NULL OR ? > ?)", Vars: []any{col, col, time.Now().UTC()}})
		default:
			_ = tx.AddError(fmt.Errorf("unsupported predicate op %q", p.Op))
		}
	}
	return tx
}

// searchCondition ORs a case-insensitive substring match across the predicate's columns.
func searchCondition(p query.Predicate) clause.Expr {
	term, _ := p.Value.(string)
	pattern := "%" + strings.ToLower(term) + "%"

	parts := make([]string, 0, len(p.Columns))
	vars := make([]any, 0, len(p.Columns)*2)
	for _, c := range p.Columns {
		parts = append(parts, "LOWER(?) LIKE ?")
		vars = append(vars, clause.Column{Name: c}, pattern)
	}
	return clause.Expr{SQL: "(" + strings.Join(parts, " OR ") + ")", Vars: vars}
}
