package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marmos91/dittogrid/internal/protocol/packinstr"
)

var (
	// ErrBuild is wrapped by every query construction failure.
	ErrBuild = errors.New("query build failed")

	// ErrExecute is wrapped by every query execution failure.
	ErrExecute = errors.New("query execution failed")
)

// Select flags and options understood by the server.
// Selection is one selected column.
type Selection struct {
	Field     Field
	Aggregate Aggregate
	OrderBy   bool
}

// Condition restricts the result set.
type Condition struct {
	Field    Field
	Operator Operator
	Value    string
}

// Query is an immutable, validated query.
type Query struct {
	Selections   []Selection
	Conditions   []Condition
	MaxRows      int
	Distinct     bool
	ComputeTotal bool
}

// Builder accumulates selections and conditions. Errors are deferred to
// Build so calls can be chained.
type Builder struct {
	distinct     bool
	computeTotal bool
	selections   []Selection
	conditions   []Condition
	err          error
}

// NewBuilder starts a query.
//
// Parameters:
//   - distinct: Collapse identical rows
//   - computeTotal: Ask the server for the total row count across pages
func NewBuilder(distinct, computeTotal bool) *Builder {
	return &Builder{distinct: distinct, computeTotal: computeTotal}
}

// Select adds plain columns.
func (b *Builder) Select(fields ...Field) *Builder {
	for _, f := range fields {
		b.add(Selection{Field: f, Aggregate: AggregateNone})
	}
	return b
}

// SelectAggregate adds an aggregated column, e.g. COUNT(DATA_NAME).
func (b *Builder) SelectAggregate(agg Aggregate, f Field) *Builder {
	b.add(Selection{Field: f, Aggregate: agg})
	return b
}

// OrderBy marks a column as a sort key, selecting it if needed.
func (b *Builder) OrderBy(f Field) *Builder {
	for i := range b.selections {
		if b.selections[i].Field == f {
			b.selections[i].OrderBy = true
			return b
		}
	}
	b.add(Selection{Field: f, Aggregate: AggregateNone, OrderBy: true})
	return b
}

// Where adds a condition.
func (b *Builder) Where(f Field, op Operator, value string) *Builder {
	if value == "" && b.err == nil {
		b.err = fmt.Errorf("%w: empty value for condition on %s", ErrBuild, f)
	}
	b.conditions = append(b.conditions, Condition{Field: f, Operator: op, Value: value})
	return b
}

func (b *Builder) add(s Selection) {
	for _, existing := range b.selections {
		if existing.Field == s.Field && b.err == nil {
			b.err = fmt.Errorf("%w: %s selected twice", ErrBuild, s.Field)
		}
	}
	b.selections = append(b.selections, s)
}

// Build validates the query.
//
// Returns an error wrapping ErrBuild when nothing is selected, maxRows is
// not positive, a column is selected twice or a condition value is empty.
func (b *Builder) Build(maxRows int) (*Query, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.selections) == 0 {
		return nil, fmt.Errorf("%w: no columns selected", ErrBuild)
	}
	if maxRows <= 0 {
		return nil, fmt.Errorf("%w: maxRows must be positive, got %d", ErrBuild, maxRows)
	}

	return &Query{
		Selections:   append([]Selection(nil), b.selections...),
		Conditions:   append([]Condition(nil), b.conditions...),
		MaxRows:      maxRows,
		Distinct:     b.distinct,
		ComputeTotal: b.computeTotal,
	}, nil
}

// Input renders the query as a GenQueryInp_PI payload.
func (q *Query) Input(offset int, zone string) packinstr.GenQueryInput {
	in := packinstr.GenQueryInput{
		MaxRows:   q.MaxRows,
		RowOffset: offset,
		Zone:      zone,
	}
	if q.ComputeTotal {
		in.Options |= packinstr.OptionReturnTotalRowCount
	}
	if !q.Distinct {
		in.Options |= packinstr.OptionNoDistinct
	}

	for _, s := range q.Selections {
		value := int(s.Aggregate)
		if s.OrderBy {
			value |= packinstr.OrderByFlag
		}
		in.Selects = append(in.Selects, packinstr.IndexValue{Index: int(s.Field), Value: value})
	}
	for _, c := range q.Conditions {
		in.Conditions = append(in.Conditions, packinstr.IndexCondition{
			Index:     int(c.Field),
			Condition: fmt.Sprintf(" %s '%s'", c.Operator, c.Value),
		})
	}
	return in
}

// String renders the query in the catalog's query language, for logs.
func (q *Query) String() string {
	var sb strings.Builder
	sb.WriteString("select ")
	if q.Distinct {
		sb.WriteString("distinct ")
	}

	for i, s := range q.Selections {
		if i > 0 {
			sb.WriteString(", ")
		}
		if s.Aggregate != AggregateNone {
			fmt.Fprintf(&sb, "%s(%s)", s.Aggregate, s.Field)
		} else {
			sb.WriteString(s.Field.String())
		}
	}

	for i, c := range q.Conditions {
		if i == 0 {
			sb.WriteString(" where ")
		} else {
			sb.WriteString(" and ")
		}
		fmt.Fprintf(&sb, "%s %s '%s'", c.Field, c.Operator, c.Value)
	}

	var order []string
	for _, s := range q.Selections {
		if s.OrderBy {
			order = append(order, s.Field.String())
		}
	}
	if len(order) > 0 {
		sb.WriteString(" order by ")
		sb.WriteString(strings.Join(order, ", "))
	}

	return sb.String()
}
