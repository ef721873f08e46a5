package types

import (
	"fmt"
	"sort"

	"github.com/quarrylabs/stratum/pkg/normalize"
)

// FilterKey identifies one dimension a filter expression can constrain.
// Keys outside this enumerated set are rejected at parse time.
type FilterKey string

const (
	FilterKeyEntityID    FilterKey = "entity_id"
	FilterKeyEntityName  FilterKey = "entity_name"
	FilterKeyEntityType  FilterKey = "entity_type"
	FilterKeyHasProperty FilterKey = "has_property"
)

// ErrInvalidFilterKey is returned when a filter expression uses a key
// outside the enumerated set.
var ErrInvalidFilterKey = fmt.Errorf("invalid filter key")

var knownFilterKeys = map[FilterKey]bool{
	FilterKeyEntityID:    true,
	FilterKeyEntityName:  true,
	FilterKeyEntityType:  true,
	FilterKeyHasProperty: true,
}

// FilterExpression is a boolean predicate over entity records: AND
// across keys, OR within the values of one key. An expression with no
// keys matches every entity.
//
// A key present with an empty value list matches no entity. This is the
// normal boolean reading of "the entity must match at least one
// accepted value"; it is a deliberate, tested policy.
type FilterExpression struct {
	clauses map[FilterKey][]string
}

// ParseFilter builds a FilterExpression from a raw key/values mapping,
// rejecting unknown keys before any other work. A nil or empty mapping
// yields an expression that matches everything.
func ParseFilter(raw map[string][]string) (*FilterExpression, error) {
	expr := &FilterExpression{clauses: make(map[FilterKey][]string, len(raw))}
	for k, values := range raw {
		key := FilterKey(k)
		if !knownFilterKeys[key] {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFilterKey, k)
		}
		// Copy so later mutation of the caller's map cannot change
		// filter semantics mid-request.
		expr.clauses[key] = append([]string(nil), values...)
	}
	return expr, nil
}

// Empty reports whether the expression constrains nothing.
func (f *FilterExpression) Empty() bool {
	return f == nil || len(f.clauses) == 0
}

// Values returns the accepted values for a key.
func (f *FilterExpression) Values(key FilterKey) []string {
	if f == nil {
		return nil
	}
	return f.clauses[key]
}

// Raw returns the expression as a plain key/values mapping for result
// metadata. The returned map is a copy.
func (f *FilterExpression) Raw() map[string][]string {
	if f == nil {
		return map[string][]string{}
	}
	out := make(map[string][]string, len(f.clauses))
	for k, v := range f.clauses {
		out[string(k)] = append([]string(nil), v...)
	}
	return out
}

// String renders the expression deterministically for log lines.
func (f *FilterExpression) String() string {
	if f.Empty() {
		return "{}"
	}
	keys := make([]string, 0, len(f.clauses))
	for k := range f.clauses {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	s := "{"
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%v", k, f.clauses[FilterKey(k)])
	}
	return s + "}"
}

// Matches reports whether the entity satisfies every clause of the
// expression. Evaluation short-circuits on the first failing clause.
func (f *FilterExpression) Matches(e *EntityRecord) bool {
	if f.Empty() {
		return true
	}
	for key, values := range f.clauses {
		if !matchClause(key, values, e) {
			return false
		}
	}
	return true
}

func matchClause(key FilterKey, values []string, e *EntityRecord) bool {
	switch key {
	case FilterKeyEntityID:
		for _, v := range values {
			if e.ID == v {
				return true
			}
		}
	case FilterKeyEntityName:
		name := normalize.EntityName(e.Name)
		for _, v := range values {
			if name == normalize.EntityName(v) {
				return true
			}
		}
	case FilterKeyEntityType:
		typ := normalize.Fold(e.Type)
		for _, v := range values {
			if typ == normalize.Fold(v) {
				return true
			}
		}
	case FilterKeyHasProperty:
		for _, v := range values {
			if _, ok := e.Property(v); ok {
				return true
			}
		}
	}
	return false
}
