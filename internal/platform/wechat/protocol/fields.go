package protocol

import (
	"encoding/json"
	"sort"
)

// Fields is the flat key/value payload of a gateway message. Insertion order
// is preserved so encoded envelopes stay diffable against what was built.
type Fields struct {
	keys   []string
	values map[string]string
}

func NewFields() *Fields {
	return &Fields{values: make(map[string]string)}
}

// FieldsFromMap builds Fields with keys in lexicographic order.
func FieldsFromMap(m map[string]string) *Fields {
	f := NewFields()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f.Set(k, m[k])
	}
	return f
}

func (f *Fields) Set(key, value string) *Fields {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
	return f
}

func (f *Fields) Get(key string) string {
	return f.values[key]
}

func (f *Fields) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

func (f *Fields) Delete(key string) {
	if _, ok := f.values[key]; !ok {
		return
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
}

func (f *Fields) Len() int {
	return len(f.keys)
}

// Keys returns field names in insertion order.
func (f *Fields) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

func (f *Fields) Map() map[string]string {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Restrict returns a copy containing only the message type's known fields.
// Unknown keys are dropped at the protocol boundary instead of leaking into
// business logic.
func (f *Fields) Restrict(msg MessageType) *Fields {
	allowed := knownFields[msg]
	out := NewFields()
	for _, k := range f.keys {
		if _, ok := allowed[k]; ok {
			out.Set(k, f.values[k])
		}
	}
	return out
}

func (f *Fields) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.values)
}

func (f *Fields) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*f = *FieldsFromMap(m)
	return nil
}
