package fields

import (
	"encoding/json"
)

type Value struct {
	Field Field  `json:"field"`
	Value string `json:"value"`
}

// Parsed is the ordered field map produced by the parser. A field, once set,
// keeps its value; absent fields are simply missing. Not safe for concurrent
// mutation; each pipeline run owns its own Parsed.
type Parsed struct {
	values []Value
	index  map[Field]int
}

func NewParsed() *Parsed {
	return &Parsed{index: map[Field]int{}}
}

// Set stores v for f unless f already has a value. Empty values are ignored.
func (p *Parsed) Set(f Field, v string) bool {
	if v == "" {
		return false
	}
	if _, ok := p.index[f]; ok {
		return false
	}
	p.index[f] = len(p.values)
	p.values = append(p.values, Value{Field: f, Value: v})
	return true
}

func (p *Parsed) Get(f Field) (string, bool) {
	i, ok := p.index[f]
	if !ok {
		return "", false
	}
	return p.values[i].Value, true
}

func (p *Parsed) Has(f Field) bool {
	_, ok := p.index[f]
	return ok
}

func (p *Parsed) Len() int { return len(p.values) }

// Values returns the fields in the order they were first set.
func (p *Parsed) Values() []Value {
	return append([]Value(nil), p.values...)
}

// Map is an unordered view, convenient for JSON responses.
func (p *Parsed) Map() map[Field]string {
	out := make(map[Field]string, len(p.values))
	for _, v := range p.values {
		out[v.Field] = v.Value
	}
	return out
}

// rewrite replaces an existing value in place; used only by normalization.
func (p *Parsed) rewrite(f Field, v string) {
	if i, ok := p.index[f]; ok {
		p.values[i].Value = v
	}
}

func (p *Parsed) MarshalJSON() ([]byte, error) {
	if p == nil || p.values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.values)
}

func (p *Parsed) UnmarshalJSON(b []byte) error {
	var vals []Value
	if err := json.Unmarshal(b, &vals); err != nil {
		return err
	}
	*p = *NewParsed()
	for _, v := range vals {
		p.Set(v.Field, v.Value)
	}
	return nil
}
