// Package tag implements the tagged message tree exchanged with the data grid.
//
// Every request and response body is a tree of named nodes. Leaf nodes carry
// a string value; structured nodes (the "_PI" packing instructions such as
// RodsObjStat_PI or SpecColl_PI) carry children. Numeric fields travel as
// decimal strings, so accessors parse on demand.
package tag

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag is one node of a tagged message.
type Tag struct {
	Name     string
	Value    string
	Children []*Tag
}

// New returns a structured node with the given children.
func New(name string, children ...*Tag) *Tag {
	return &Tag{Name: name, Children: children}
}

// NewValue returns a leaf node. Integers, booleans and strings are rendered
// the way the server expects them.
func NewValue(name string, value any) *Tag {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case int:
		s = strconv.Itoa(v)
	case int32:
		s = strconv.FormatInt(int64(v), 10)
	case int64:
		s = strconv.FormatInt(v, 10)
	case bool:
		if v {
			s = "1"
		} else {
			s = "0"
		}
	default:
		s = fmt.Sprint(v)
	}
	return &Tag{Name: name, Value: s}
}

// Add appends children and returns the receiver for chaining.
func (t *Tag) Add(children ...*Tag) *Tag {
	t.Children = append(t.Children, children...)
	return t
}

// Tag returns the first direct child with the given name, or nil.
// Safe to call on a nil receiver so lookups can be chained.
func (t *Tag) Tag(name string) *Tag {
	if t == nil {
		return nil
	}
	for _, child := range t.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// Tags returns every direct child with the given name, in order.
func (t *Tag) Tags(name string) []*Tag {
	if t == nil {
		return nil
	}
	var out []*Tag
	for _, child := range t.Children {
		if child.Name == name {
			out = append(out, child)
		}
	}
	return out
}

// StringValue returns the node value, or "" for a nil node.
func (t *Tag) StringValue() string {
	if t == nil {
		return ""
	}
	return t.Value
}

// IntValue parses the node value as an int.
func (t *Tag) IntValue() (int, error) {
	if t == nil {
		return 0, fmt.Errorf("missing tag")
	}
	v, err := strconv.Atoi(strings.TrimSpace(t.Value))
	if err != nil {
		return 0, fmt.Errorf("tag %s: invalid int %q: %w", t.Name, t.Value, err)
	}
	return v, nil
}

// Int64Value parses the node value as an int64.
func (t *Tag) Int64Value() (int64, error) {
	if t == nil {
		return 0, fmt.Errorf("missing tag")
	}
	v, err := strconv.ParseInt(strings.TrimSpace(t.Value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("tag %s: invalid int64 %q: %w", t.Name, t.Value, err)
	}
	return v, nil
}

// ChildInt looks up a direct child and parses it as an int. The error names
// the missing or malformed child.
func (t *Tag) ChildInt(name string) (int, error) {
	child := t.Tag(name)
	if child == nil {
		return 0, fmt.Errorf("missing tag %s", name)
	}
	return child.IntValue()
}

// ChildInt64 is the int64 variant of ChildInt.
func (t *Tag) ChildInt64(name string) (int64, error) {
	child := t.Tag(name)
	if child == nil {
		return 0, fmt.Errorf("missing tag %s", name)
	}
	return child.Int64Value()
}

// String renders the tree in the XML-like form the server logs use.
func (t *Tag) String() string {
	if t == nil {
		return "<nil>"
	}
	var sb strings.Builder
	t.render(&sb, 0)
	return sb.String()
}

func (t *Tag) render(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	if len(t.Children) == 0 {
		fmt.Fprintf(sb, "%s<%s>%s</%s>\n", indent, t.Name, t.Value, t.Name)
		return
	}
	fmt.Fprintf(sb, "%s<%s>\n", indent, t.Name)
	for _, child := range t.Children {
		child.render(sb, depth+1)
	}
	fmt.Fprintf(sb, "%s</%s>\n", indent, t.Name)
}
