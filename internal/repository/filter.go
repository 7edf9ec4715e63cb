package repository

// Op is a comparison applied to a single stored field.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpIn
	// OpContains is a case-insensitive substring match.
	OpContains
)

// Condition compares one field. OpIn uses every entry of Values; the other
// operators use Values[0].
type Condition struct {
	Field  string
	Op     Op
	Values []string
}

func (c Condition) value() string {
	if len(c.Values) == 0 {
		return ""
	}
	return c.Values[0]
}

func Eq(field, value string) Condition { return Condition{Field: field, Op: OpEq, Values: []string{value}} }
func Ne(field, value string) Condition { return Condition{Field: field, Op: OpNe, Values: []string{value}} }
func In(field string, values ...string) Condition {
	return Condition{Field: field, Op: OpIn, Values: values}
}
func Contains(field, term string) Condition {
	return Condition{Field: field, Op: OpContains, Values: []string{term}}
}

// Filter matches documents satisfying every condition in All and, when Any
// is non-empty, at least one condition in Any.
type Filter struct {
	All []Condition
	Any []Condition
}

// Where builds a conjunctive filter.
func Where(conds ...Condition) Filter {
	return Filter{All: conds}
}

// And returns a copy of f with conds added to All.
func (f Filter) And(conds ...Condition) Filter {
	all := make([]Condition, 0, len(f.All)+len(conds))
	all = append(all, f.All...)
	all = append(all, conds...)
	return Filter{All: all, Any: f.Any}
}

// Or returns a copy of f with conds added to Any.
func (f Filter) Or(conds ...Condition) Filter {
	anyOf := make([]Condition, 0, len(f.Any)+len(conds))
	anyOf = append(anyOf, f.Any...)
	anyOf = append(anyOf, conds...)
	return Filter{All: f.All, Any: anyOf}
}

// Merge combines two filters. Any-conditions from both sides are pooled,
// so at most one side should carry a disjunction.
func (f Filter) Merge(other Filter) Filter {
	return f.And(other.All...).Or(other.Any...)
}

// SearchFilter matches term as a case-insensitive substring of any field.
// An empty term matches everything.
func SearchFilter(term string, fields ...string) Filter {
	if term == "" {
		return Filter{}
	}
	conds := make([]Condition, 0, len(fields))
	for _, field := range fields {
		conds = append(conds, Contains(field, term))
	}
	return Filter{Any: conds}
}
