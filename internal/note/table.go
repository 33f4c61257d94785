package note

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Table is an insertion-ordered map from row id to row. It is used for the
// regional assessment, exercise and goals tables, which are keyed by
// generated ids but displayed in the order rows were added.
//
// The zero value is an empty table.
type Table[T any] struct {
	m *orderedmap.OrderedMap[string, T]
}

// NewTable returns an empty table.
func NewTable[T any]() Table[T] {
	return Table[T]{m: orderedmap.New[string, T]()}
}

func (t *Table[T]) init() {
	if t.m == nil {
		t.m = orderedmap.New[string, T]()
	}
}

// Len returns the number of rows.
func (t Table[T]) Len() int {
	if t.m == nil {
		return 0
	}
	return t.m.Len()
}

// Get returns the row stored under id.
func (t Table[T]) Get(id string) (T, bool) {
	if t.m == nil {
		var zero T
		return zero, false
	}
	return t.m.Get(id)
}

// Keys returns row ids in insertion order.
func (t Table[T]) Keys() []string {
	keys := make([]string, 0, t.Len())
	t.Each(func(id string, _ T) {
		keys = append(keys, id)
	})
	return keys
}

// Each calls fn for every row in insertion order.
func (t Table[T]) Each(fn func(id string, row T)) {
	if t.m == nil {
		return
	}
	for pair := t.m.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Set stores row under id. An existing id keeps its position.
func (t *Table[T]) Set(id string, row T) {
	t.init()
	t.m.Set(id, row)
}

// Add appends row under a newly generated id and returns the id.
func (t *Table[T]) Add(row T) string {
	id := NewID()
	t.Set(id, row)
	return id
}

// Delete removes the row stored under id.
func (t *Table[T]) Delete(id string) {
	if t.m == nil {
		return
	}
	t.m.Delete(id)
}

// Clone returns a copy that shares no map storage with t.
func (t Table[T]) Clone() Table[T] {
	c := NewTable[T]()
	t.Each(func(id string, row T) {
		c.m.Set(id, row)
	})
	return c
}

// MarshalJSON writes the table as a JSON object in insertion order.
func (t Table[T]) MarshalJSON() ([]byte, error) {
	if t.m == nil || t.m.Len() == 0 {
		return []byte("{}"), nil
	}
	return t.m.MarshalJSON()
}

// UnmarshalJSON reads a JSON object, keeping key order. null decodes as an
// empty table.
func (t *Table[T]) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, T]()
	trimmed := bytes.TrimSpace(data)
	if !bytes.Equal(trimmed, []byte("null")) {
		if err := m.UnmarshalJSON(trimmed); err != nil {
			return err
		}
	}
	t.m = m
	return nil
}

// TableFromJSON decodes either a JSON object of id to row, or a JSON array
// of rows. Array rows get generated ids in array order.
func TableFromJSON[T any](data json.RawMessage) (Table[T], error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return NewTable[T](), nil
	}
	switch trimmed[0] {
	case '[':
		var rows []T
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return Table[T]{}, err
		}
		t := NewTable[T]()
		for _, row := range rows {
			t.Add(row)
		}
		return t, nil
	case '{', 'n':
		var t Table[T]
		if err := t.UnmarshalJSON(trimmed); err != nil {
			return Table[T]{}, err
		}
		return t, nil
	default:
		return Table[T]{}, fmt.Errorf("table must be an object or array, got %.20s", trimmed)
	}
}
