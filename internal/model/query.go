package model

// ProductQuery is a compiled catalog query: AND-combined predicates plus an ordering
type ProductQuery struct {
	PriceMin    *float64
	PriceMax    *float64
	Gender      *string // matches exact, unisex or unset
	AgeRange    *string // matches exact or unset
	Style       *string // matches exact or unset
	CategoryIDs []int64 // empty means no category restriction
	Sort        SortDirective
	Limit       int
}

// Sortable product fields
const (
	FieldPrice      = "price"
	FieldRating     = "rating"
	FieldSalesCount = "sales_count"
	FieldCreatedAt  = "created_at"
	FieldID         = "id"
)

// OrderTerm is one ordering key. Unknown (NULL) values always sort after known ones.
type OrderTerm struct {
	Field string
	Desc  bool
}

// OrderBy expands the sort directive into ordering terms. Every ordering ends with id ascending.
func (q *ProductQuery) OrderBy() []OrderTerm {
	tie := OrderTerm{Field: FieldID}
	switch q.Sort {
	case SortPriceAsc:
		return []OrderTerm{{Field: FieldPrice}, tie}
	case SortPriceDesc:
		return []OrderTerm{{Field: FieldPrice, Desc: true}, tie}
	case SortRatingDesc:
		return []OrderTerm{{Field: FieldRating, Desc: true}, tie}
	case SortSalesDesc:
		return []OrderTerm{{Field: FieldSalesCount, Desc: true}, tie}
	default:
		return []OrderTerm{
			{Field: FieldRating, Desc: true},
			{Field: FieldSalesCount, Desc: true},
			{Field: FieldCreatedAt, Desc: true},
			tie,
		}
	}
}
