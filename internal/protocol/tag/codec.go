package tag

import (
	"bytes"
	"fmt"
	"io"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// ============================================================================
// XDR Codec - Tag Tree ↔ Wire Format
// ============================================================================

// maxDepth bounds nesting on decode. The deepest legitimate message
// (GenQueryOut_PI → SqlResult_PI → value) is three levels.
const maxDepth = 16

// wireNode is the XDR shape of a tag. go-xdr walks the slice recursively:
//
//	struct node {
//	    string name<>;
//	    string value<>;
//	    node   children<>;
//	};
type wireNode struct {
	Name     string
	Value    string
	Children []wireNode
}

func toWire(t *Tag) wireNode {
	n := wireNode{Name: t.Name, Value: t.Value}
	if len(t.Children) > 0 {
		n.Children = make([]wireNode, len(t.Children))
		for i, child := range t.Children {
			n.Children[i] = toWire(child)
		}
	}
	return n
}

func fromWire(n wireNode, depth int) (*Tag, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("tag nesting exceeds %d levels", maxDepth)
	}
	t := &Tag{Name: n.Name, Value: n.Value}
	if len(n.Children) > 0 {
		t.Children = make([]*Tag, len(n.Children))
		for i, child := range n.Children {
			c, err := fromWire(child, depth+1)
			if err != nil {
				return nil, err
			}
			t.Children[i] = c
		}
	}
	return t, nil
}

// Encode writes the XDR encoding of t to w.
func Encode(w io.Writer, t *Tag) error {
	if t == nil {
		t = &Tag{}
	}
	node := toWire(t)
	if _, err := xdr.Marshal(w, &node); err != nil {
		return fmt.Errorf("marshal tag %s: %w", t.Name, err)
	}
	return nil
}

// Decode reads one XDR encoded tag tree from r.
func Decode(r io.Reader) (*Tag, error) {
	var node wireNode
	if _, err := xdr.Unmarshal(r, &node); err != nil {
		return nil, fmt.Errorf("unmarshal tag: %w", err)
	}
	return fromWire(node, 0)
}

// Marshal returns the XDR encoding of t.
func Marshal(t *Tag) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a tag tree from data.
func Unmarshal(data []byte) (*Tag, error) {
	return Decode(bytes.NewReader(data))
}
