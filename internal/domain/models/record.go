// internal/domain/models/record.go
package models

import (
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Record is an untyped entity document. Keys are field names as stored in
// MongoDB; "_id" holds the identifier.
type Record map[string]any

// ID returns the record identifier, or "" when unset.
func (r Record) ID() string {
	s, _ := r["_id"].(string)
	return s
}

// String returns a string field, or "" when missing or not a string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Strings returns a list field as strings. Non-string entries are skipped.
func (r Record) Strings(field string) []string {
	return StringList(r[field])
}

// Has reports whether field is present.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Clone returns a deep copy with plain Go containers.
func (r Record) Clone() Record {
	return Record(Plain(map[string]any(r)).(map[string]any))
}

// Merge copies every key of src into r, replacing existing values.
func (r Record) Merge(src map[string]any) {
	for k, v := range src {
		r[k] = v
	}
}

// StringList converts any list-like value to []string.
func StringList(v any) []string {
	items, ok := Plain(v).([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Contains reports whether a list-like value holds s.
func Contains(v any, s string) bool {
	for _, it := range StringList(v) {
		if it == s {
			return true
		}
	}
	return false
}

// RecordFromBSON converts a decoded document to a Record with plain
// map[string]any / []any containers all the way down.
func RecordFromBSON(m bson.M) Record {
	if m == nil {
		return nil
	}
	return Record(Plain(m).(map[string]any))
}

// Plain rewrites the driver's container types (bson.M, bson.D, bson.A) and
// any other string-keyed map or slice into map[string]any and []any.
// Scalars pass through unchanged.
func Plain(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Plain(val)
		}
		return out
	case Record:
		return Plain(map[string]any(t))
	case bson.M:
		return Plain(map[string]any(t))
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = Plain(e.Value)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Plain(val)
		}
		return out
	case primitive.A:
		return Plain([]any(t))
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case string, bool, float64, int, int32, int64:
		return t
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = Plain(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Plain(rv.Index(i).Interface())
		}
		return out
	}
	return v
}
