// Package packinstr builds request bodies and parses response bodies for the
// data grid APIs used by the catalog engine.
//
// Each builder mirrors one server packing instruction (the "_PI" structures).
// The same types are used by the simulator in pkg/gridsim to answer requests,
// so request and response shapes stay in one place.
package packinstr

import (
	"fmt"

	"github.com/marmos91/dittogrid/internal/protocol/tag"
)

// KeyValue is one keyword/value pair of a KeyValPair_PI.
type KeyValue struct {
	Key   string
	Value string
}

// KeyValPair renders pairs as KeyValPair_PI{ssLen, keyWord*, svalue*}.
func KeyValPair(pairs ...KeyValue) *tag.Tag {
	t := tag.New("KeyValPair_PI", tag.NewValue("ssLen", len(pairs)))
	for _, p := range pairs {
		t.Add(tag.NewValue("keyWord", p.Key))
	}
	for _, p := range pairs {
		t.Add(tag.NewValue("svalue", p.Value))
	}
	return t
}

// ParseKeyValPair reads a KeyValPair_PI into a map. A nil tag yields an
// empty map.
func ParseKeyValPair(t *tag.Tag) (map[string]string, error) {
	out := make(map[string]string)
	if t == nil {
		return out, nil
	}

	keys := t.Tags("keyWord")
	values := t.Tags("svalue")
	if len(keys) != len(values) {
		return nil, fmt.Errorf("KeyValPair_PI: %d keys but %d values", len(keys), len(values))
	}

	for i := range keys {
		out[keys[i].StringValue()] = values[i].StringValue()
	}
	return out, nil
}
