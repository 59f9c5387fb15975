package httpx

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
)

// Query is an ordered list of query-string parameters. Parameters whose
// value is nil (or a nil pointer) are left out of the encoded form
// entirely rather than encoded as empty.
type Query []QueryParam

// QueryParam is a single key/value pair of a Query.
type QueryParam struct {
	Key   string
	Value any
}

// Add appends a parameter, keeping insertion order.
func (q Query) Add(key string, value any) Query {
	return append(q, QueryParam{Key: key, Value: value})
}

// Encode renders the query as key=value pairs joined by '&', with both sides
// passed through EscapeComponent.
func (q Query) Encode() string {
	if len(q) == 0 {
		return ""
	}
	parts := make([]string, 0, len(q))
	for _, p := range q {
		value, ok := queryValue(p.Value)
		if !ok {
			continue
		}
		parts = append(parts, EscapeComponent(p.Key)+"="+EscapeComponent(value))
	}
	return strings.Join(parts, "&")
}

func queryValue(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	switch val := rv.Interface().(type) {
	case string:
		return val, true
	case fmt.Stringer:
		return val.String(), true
	default:
		return fmt.Sprint(val), true
	}
}

// EscapeComponent escapes s for use as a single path segment or query
// component. Reserved characters including '/' are percent-encoded and
// spaces become %20.
func EscapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
