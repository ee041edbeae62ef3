package packinstr

import (
	"fmt"

	"github.com/marmos91/dittogrid/internal/protocol/tag"
)

// GenQuery flags.
const (
	// OrderByFlag is OR'd into a select value to sort on the column
	OrderByFlag = 0x400

	// OptionReturnTotalRowCount asks for totalRowCount in the reply
	OptionReturnTotalRowCount = 0x20

	// OptionNoDistinct keeps duplicate rows
	OptionNoDistinct = 0x40
)

// IndexValue is one entry of InxIvalPair_PI: a column index and its
// selection flags (plain, aggregate, order by).
type IndexValue struct {
	Index int
	Value int
}

// IndexCondition is one entry of InxValPair_PI: a column index and its
// condition string, e.g. " = '/zoneA/home'".
type IndexCondition struct {
	Index     int
	Condition string
}

// GenQueryInput mirrors GenQueryInp_PI.
type GenQueryInput struct {
	MaxRows       int
	ContinueIndex int
	RowOffset     int
	Options       int
	Zone          string
	Selects       []IndexValue
	Conditions    []IndexCondition
}

// Tag renders GenQueryInp_PI.
func (g GenQueryInput) Tag() *tag.Tag {
	var kv []KeyValue
	if g.Zone != "" {
		kv = append(kv, KeyValue{Key: "zone", Value: g.Zone})
	}

	selects := tag.New("InxIvalPair_PI", tag.NewValue("iiLen", len(g.Selects)))
	for _, s := range g.Selects {
		selects.Add(tag.NewValue("inx", s.Index))
	}
	for _, s := range g.Selects {
		selects.Add(tag.NewValue("ivalue", s.Value))
	}

	conds := tag.New("InxValPair_PI", tag.NewValue("isLen", len(g.Conditions)))
	for _, c := range g.Conditions {
		conds.Add(tag.NewValue("inx", c.Index))
	}
	for _, c := range g.Conditions {
		conds.Add(tag.NewValue("svalue", c.Condition))
	}

	return tag.New("GenQueryInp_PI",
		tag.NewValue("maxRows", g.MaxRows),
		tag.NewValue("continueInx", g.ContinueIndex),
		tag.NewValue("partialStartIndex", g.RowOffset),
		tag.NewValue("options", g.Options),
		KeyValPair(kv...),
		selects,
		conds,
	)
}

// ParseGenQueryInput decodes GenQueryInp_PI.
func ParseGenQueryInput(t *tag.Tag) (GenQueryInput, error) {
	var g GenQueryInput
	var err error

	if g.MaxRows, err = t.ChildInt("maxRows"); err != nil {
		return g, fmt.Errorf("GenQueryInp_PI: %w", err)
	}
	if g.ContinueIndex, err = t.ChildInt("continueInx"); err != nil {
		return g, fmt.Errorf("GenQueryInp_PI: %w", err)
	}
	if g.RowOffset, err = t.ChildInt("partialStartIndex"); err != nil {
		return g, fmt.Errorf("GenQueryInp_PI: %w", err)
	}
	if g.Options, err = t.ChildInt("options"); err != nil {
		return g, fmt.Errorf("GenQueryInp_PI: %w", err)
	}

	kv, err := ParseKeyValPair(t.Tag("KeyValPair_PI"))
	if err != nil {
		return g, err
	}
	g.Zone = kv["zone"]

	selects := t.Tag("InxIvalPair_PI")
	inx, vals := selects.Tags("inx"), selects.Tags("ivalue")
	if len(inx) != len(vals) {
		return g, fmt.Errorf("InxIvalPair_PI: %d indexes but %d values", len(inx), len(vals))
	}
	for i := range inx {
		index, err := inx[i].IntValue()
		if err != nil {
			return g, err
		}
		value, err := vals[i].IntValue()
		if err != nil {
			return g, err
		}
		g.Selects = append(g.Selects, IndexValue{Index: index, Value: value})
	}

	conds := t.Tag("InxValPair_PI")
	inx, svals := conds.Tags("inx"), conds.Tags("svalue")
	if len(inx) != len(svals) {
		return g, fmt.Errorf("InxValPair_PI: %d indexes but %d values", len(inx), len(svals))
	}
	for i := range inx {
		index, err := inx[i].IntValue()
		if err != nil {
			return g, err
		}
		g.Conditions = append(g.Conditions, IndexCondition{Index: index, Condition: svals[i].StringValue()})
	}

	return g, nil
}

// Column is one SqlResult_PI: every value of a single attribute, one per row.
type Column struct {
	AttributeIndex int
	Values         []string
}

// GenQueryOutput mirrors GenQueryOut_PI, the reply shape shared by
// APIGenQuery and APIQuerySpecColl.
type GenQueryOutput struct {
	RowCount      int
	ContinueIndex int
	TotalRowCount int
	Columns       []Column
}

// Tag renders GenQueryOut_PI.
func (g GenQueryOutput) Tag() *tag.Tag {
	t := tag.New("GenQueryOut_PI",
		tag.NewValue("rowCnt", g.RowCount),
		tag.NewValue("attriCnt", len(g.Columns)),
		tag.NewValue("continueInx", g.ContinueIndex),
		tag.NewValue("totalRowCount", g.TotalRowCount),
	)
	for _, col := range g.Columns {
		result := tag.New("SqlResult_PI",
			tag.NewValue("attriInx", col.AttributeIndex),
			tag.NewValue("reslen", maxLen(col.Values)),
		)
		for _, v := range col.Values {
			result.Add(tag.NewValue("value", v))
		}
		t.Add(result)
	}
	return t
}

func maxLen(values []string) int {
	n := 0
	for _, v := range values {
		if len(v)+1 > n {
			n = len(v) + 1
		}
	}
	return n
}

// ParseGenQueryOutput decodes GenQueryOut_PI and checks that every column
// carries rowCnt values.
func ParseGenQueryOutput(t *tag.Tag) (*GenQueryOutput, error) {
	if t == nil {
		return nil, fmt.Errorf("missing GenQueryOut_PI")
	}

	out := &GenQueryOutput{}
	var err error

	if out.RowCount, err = t.ChildInt("rowCnt"); err != nil {
		return nil, fmt.Errorf("GenQueryOut_PI: %w", err)
	}
	attributes, err := t.ChildInt("attriCnt")
	if err != nil {
		return nil, fmt.Errorf("GenQueryOut_PI: %w", err)
	}
	if out.ContinueIndex, err = t.ChildInt("continueInx"); err != nil {
		return nil, fmt.Errorf("GenQueryOut_PI: %w", err)
	}
	if out.TotalRowCount, err = t.ChildInt("totalRowCount"); err != nil {
		return nil, fmt.Errorf("GenQueryOut_PI: %w", err)
	}

	results := t.Tags("SqlResult_PI")
	if len(results) != attributes {
		return nil, fmt.Errorf("GenQueryOut_PI: attriCnt %d but %d SqlResult_PI", attributes, len(results))
	}

	for _, r := range results {
		index, err := r.ChildInt("attriInx")
		if err != nil {
			return nil, fmt.Errorf("SqlResult_PI: %w", err)
		}
		values := r.Tags("value")
		if len(values) != out.RowCount {
			return nil, fmt.Errorf("SqlResult_PI %d: %d values for %d rows", index, len(values), out.RowCount)
		}
		col := Column{AttributeIndex: index, Values: make([]string, len(values))}
		for i, v := range values {
			col.Values[i] = v.StringValue()
		}
		out.Columns = append(out.Columns, col)
	}

	return out, nil
}
