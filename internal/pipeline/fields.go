package pipeline

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Field is one rendered header or parameter, kept in the order it arrived.
type Field struct {
	Key   string
	Value string
}

// RenderFields formats fields as {"k":"v", "k2":"v2"}. Double quotes in
// values become single quotes so the result stays parseable.
func RenderFields(fields []Field) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('"')
		b.WriteString(f.Key)
		b.WriteString(`":"`)
		b.WriteString(strings.ReplaceAll(f.Value, `"`, "'"))
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

// HeaderFields flattens h in key order; repeated values are comma-joined.
func HeaderFields(h http.Header) []Field {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Key: k, Value: strings.Join(h[k], ", ")})
	}
	return fields
}

// ParamFields flattens v in key order keeping the first value of each key.
func ParamFields(v url.Values) []Field {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Key: k, Value: v.Get(k)})
	}
	return fields
}
