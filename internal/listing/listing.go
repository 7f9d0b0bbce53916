// Package listing implements the filter, sort and paginate contract shared by
// every collection endpoint.
package listing

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPageSize is the number of records returned when no page size is given.
const DefaultPageSize = 100

// Query holds the caller-supplied listing parameters. Nil page fields mean the
// parameter was absent.
type Query struct {
	Query         string
	SortBy        string
	SortDirection string
	PageNumber    *int
	PageSize      *int
}

// Collection describes how one table is filtered and sorted.
type Collection struct {
	// FilterColumn is matched against Query.Query as a case-insensitive substring.
	FilterColumn string
	// SortFields maps API field names to columns. Lookups ignore case.
	SortFields map[string]string
	// IDColumn is the fallback ordering. Defaults to "id".
	IDColumn string
}

// Plan is the resolved form of a Query against a Collection.
type Plan struct {
	// Pattern is the LIKE pattern, empty when no filter applies.
	Pattern    string
	OrderBy    string
	Descending bool
	Offset     int
	Limit      int
}

func (c Collection) idColumn() string {
	if c.IDColumn == "" {
		return "id"
	}
	return c.IDColumn
}

// Resolve turns q into a Plan.
//
// A recognized sort field sorts ascending for "asc" and descending for any
// other direction, including none. An unknown or empty field orders by the id
// column ascending. Skip is (page-1)*size when both are present; a negative result is
// clamped to zero and a non-positive size falls back to DefaultPageSize.
func (c Collection) Resolve(q Query) Plan {
	p := Plan{
		OrderBy: c.idColumn(),
		Limit:   DefaultPageSize,
	}

	if term := strings.TrimSpace(q.Query); term != "" && c.FilterColumn != "" {
		p.Pattern = "%" + EscapeLike(strings.ToLower(term)) + "%"
	}

	if col, ok := c.sortColumn(q.SortBy); ok {
		p.OrderBy = col
		p.Descending = !strings.EqualFold(strings.TrimSpace(q.SortDirection), "asc")
	}

	if q.PageSize != nil && *q.PageSize > 0 {
		p.Limit = *q.PageSize
	}
	if q.PageNumber != nil && q.PageSize != nil {
		if skip := (*q.PageNumber - 1) * *q.PageSize; skip > 0 {
			p.Offset = skip
		}
	}

	return p
}

func (c Collection) sortColumn(field string) (string, bool) {
	field = strings.TrimSpace(field)
	if field == "" {
		return "", false
	}
	for name, col := range c.SortFields {
		if strings.EqualFold(name, field) {
			return col, true
		}
	}
	return "", false
}

// Filter returns a scope that applies only the text filter of q.
func (c Collection) Filter(q Query) func(*gorm.DB) *gorm.DB {
	p := c.Resolve(q)
	return func(db *gorm.DB) *gorm.DB {
		if p.Pattern == "" {
			return db
		}
		return db.Where("LOWER("+c.FilterColumn+") LIKE ? ESCAPE '\\'", p.Pattern)
	}
}

// Scope returns a GORM scope applying the filter, ordering and page window of q.
func (c Collection) Scope(q Query) func(*gorm.DB) *gorm.DB {
	p := c.Resolve(q)
	return func(db *gorm.DB) *gorm.DB {
		db = db.Scopes(c.Filter(q))
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: p.OrderBy}, Desc: p.Descending})
		if p.OrderBy != c.idColumn() {
			// Tie-break on id so pages stay disjoint when sort keys repeat.
			db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: c.idColumn()}})
		}
		return db.Offset(p.Offset).Limit(p.Limit)
	}
}

// EscapeLike escapes LIKE metacharacters so s matches literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Int returns a pointer to v. Handy for building a Query by hand.
func Int(v int) *int {
	return &v
}
