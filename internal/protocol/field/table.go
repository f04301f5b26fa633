package field

import (
	"strconv"
	"strings"
)

// Entry is one key/value pair of a field table.
type Entry struct {
	Key   string
	Value Value
}

// Table is an ordered field table. Keys are unique and keep the position of
// their first insertion.
type Table struct {
	Entries []Entry
}

// NewTable builds a table from entries, applying Set semantics to duplicates.
func NewTable(entries ...Entry) *Table {
	t := &Table{Entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		t.Set(e.Key, e.Value)
	}
	return t
}

// Set inserts key or replaces its value in place.
func (t *Table) Set(key string, v Value) {
	for i := range t.Entries {
		if t.Entries[i].Key == key {
			t.Entries[i].Value = v
			return
		}
	}
	t.Entries = append(t.Entries, Entry{Key: key, Value: v})
}

func (t *Table) Get(key string) (Value, bool) {
	if t == nil {
		return Value{}, false
	}
	for _, e := range t.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Entries)
}

func (t *Table) Keys() []string {
	keys := make([]string, 0, t.Len())
	if t == nil {
		return keys
	}
	for _, e := range t.Entries {
		keys = append(keys, e.Key)
	}
	return keys
}

// Map flattens the table into plain Go values. Ordering is lost.
func (t *Table) Map() map[string]any {
	out := make(map[string]any, t.Len())
	if t == nil {
		return out
	}
	for _, e := range t.Entries {
		out[e.Key] = e.Value.Interface()
	}
	return out
}

func (t *Table) String() string {
	if t == nil {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, e := range t.Entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(e.Key))
		b.WriteString(": ")
		b.WriteString(e.Value.String())
	}
	b.WriteByte('}')
	return b.String()
}
