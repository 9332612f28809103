package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNoState      = errors.New("embedded state not found")
	ErrInvalidState = errors.New("embedded state is not valid json")
)

// Path is a chain of object keys into a State.
type Path []string

func (p Path) String() string {
	return strings.Join(p, ".")
}

// State is an embedded JSON state blob. It keeps the raw bytes so object key
// order survives, which FirstKey depends on.
type State struct {
	raw json.RawMessage
}

func ParseState(data []byte) (*State, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, ErrInvalidState
	}
	return &State{raw: json.RawMessage(data)}, nil
}

// Lookup walks path and returns the value found there. JSON null counts as absent.
func (s *State) Lookup(path Path) (json.RawMessage, bool) {
	if s == nil {
		return nil, false
	}
	cur := s.raw
	for _, key := range path {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(cur, &obj); err != nil {
			return nil, false
		}
		next, ok := obj[key]
		if !ok {
			return nil, false
		}
		cur = next
	}
	if isNull(cur) {
		return nil, false
	}
	return cur, true
}

// At returns the sub-state at path.
func (s *State) At(path Path) (*State, bool) {
	raw, ok := s.Lookup(path)
	if !ok {
		return nil, false
	}
	return &State{raw: raw}, true
}

// String resolves the first path holding a non-empty string or number.
func (s *State) String(chain ...Path) (string, bool) {
	for _, path := range chain {
		raw, ok := s.Lookup(path)
		if !ok {
			continue
		}
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			var num json.Number
			if err := json.Unmarshal(raw, &num); err != nil {
				continue
			}
			str = num.String()
		}
		if str = strings.TrimSpace(str); str != "" {
			return str, true
		}
	}
	return "", false
}

// Decimal resolves the first path holding a number or numeric string.
func (s *State) Decimal(chain ...Path) (decimal.Decimal, bool) {
	for _, path := range chain {
		raw, ok := s.Lookup(path)
		if !ok {
			continue
		}
		var d decimal.Decimal
		if err := d.UnmarshalJSON(raw); err != nil {
			continue
		}
		return d, true
	}
	return decimal.Zero, false
}

// Each calls fn for every element of the array at path.
func (s *State) Each(path Path, fn func(*State)) {
	raw, ok := s.Lookup(path)
	if !ok {
		return
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return
	}
	for _, item := range items {
		if isNull(item) {
			continue
		}
		fn(&State{raw: item})
	}
}

// FirstKey returns the first key, in document order, of the object at path.
func (s *State) FirstKey(path Path) (string, bool) {
	raw, ok := s.Lookup(path)
	if !ok {
		return "", false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return "", false
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return "", false
	}
	tok, err = dec.Token()
	if err != nil {
		return "", false
	}
	key, ok := tok.(string)
	if !ok {
		return "", false
	}
	return key, true
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
