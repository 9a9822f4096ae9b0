// Package errextract pulls a normalized status/code/message summary out of
// error response values whose shape is not known in advance.
package errextract

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Record is the normalized error summary of one failed request.
type Record struct {
	HTTPStatus *int
	ErrorCode  string
	ErrorType  string
	Message    string
	StackTrace string
}

// Status renders HTTPStatus, or "null" when the value carried none.
func (r Record) Status() string {
	if r.HTTPStatus == nil {
		return "null"
	}
	return strconv.Itoa(*r.HTTPStatus)
}

// Verbose reports a 5xx status; only those earn the stack trace record.
func (r Record) Verbose() bool {
	return r.HTTPStatus != nil && *r.HTTPStatus >= 500 && *r.HTTPStatus < 600
}

type Field int

const (
	FieldHTTPStatus Field = iota
	FieldErrorCode
	FieldMessage
)

func (f Field) String() string {
	switch f {
	case FieldHTTPStatus:
		return "httpStatus"
	case FieldErrorCode:
		return "errorCode"
	default:
		return "message"
	}
}

// Probe maps one path in the value tree onto a record field.
type Probe struct {
	Path  string
	Field Field
	expr  jp.Expr
}

// probes is evaluated top to bottom; the first hit per field wins.
var probes = compile([]Probe{
	{Path: "$.httpStatus", Field: FieldHTTPStatus},
	{Path: "$.status", Field: FieldHTTPStatus},
	{Path: "$.statusCodeValue", Field: FieldHTTPStatus},

	{Path: "$.errorCode", Field: FieldErrorCode},
	{Path: "$.code", Field: FieldErrorCode},
	{Path: "$.properties.errorCode", Field: FieldErrorCode},
	{Path: "$.body.code", Field: FieldErrorCode},
	{Path: "$.body.errorCode", Field: FieldErrorCode},

	{Path: "$.message", Field: FieldMessage},
	{Path: "$.detail", Field: FieldMessage},
	{Path: "$.body.message", Field: FieldMessage},
	{Path: "$.body.errorMessage", Field: FieldMessage},
})

func compile(list []Probe) []Probe {
	for i := range list {
		list[i].expr = jp.MustParseString(list[i].Path)
	}
	return list
}

// Probes returns the probe table in evaluation order.
func Probes() []Probe {
	out := make([]Probe, len(probes))
	copy(out, probes)
	return out
}

// Extract summarizes value, the error response a handler produced for
// cause. It returns false when value is not a non-empty object; that is a
// skip, not a failure.
func Extract(value any, cause error) (Record, bool) {
	tree, ok := toTree(value)
	if !ok {
		return Record{}, false
	}

	rec := Record{
		ErrorType:  TypeName(cause),
		StackTrace: StackTrace(cause),
	}
	resolved := make(map[Field]bool, 3)

	for _, p := range probes {
		if resolved[p.Field] {
			continue
		}
		found := p.expr.First(tree)
		if found == nil {
			continue
		}
		switch p.Field {
		case FieldHTTPStatus:
			n, ok := asInt(found)
			if !ok {
				continue
			}
			rec.HTTPStatus = &n
		case FieldErrorCode:
			s, ok := asString(found)
			if !ok {
				continue
			}
			rec.ErrorCode = s
		case FieldMessage:
			s, ok := asString(found)
			if !ok {
				continue
			}
			rec.Message = s
		}
		resolved[p.Field] = true
	}

	return rec, true
}

func toTree(value any) (map[string]any, bool) {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil, false
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	case string:
		raw = []byte(v)
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, false
		}
		raw = b
	}

	parsed, err := oj.Parse(raw)
	if err != nil {
		return nil, false
	}
	tree, ok := parsed.(map[string]any)
	if !ok || len(tree) == 0 {
		return nil, false
	}
	return tree, true
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case int64:
		return strconv.FormatInt(s, 10), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	}
	return "", false
}

// TypeName is the package-qualified type of err, e.g.
// "github.com/gofiber/fiber/v2.Error". Errors may name themselves by
// implementing ErrorType() string.
func TypeName(err error) string {
	if err == nil {
		return ""
	}
	if named, ok := err.(interface{ ErrorType() string }); ok {
		return named.ErrorType()
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// StackTrace is the short trace text of the error record: the first field
// violation for validation errors, the error text otherwise.
func StackTrace(err error) string {
	if err == nil {
		return ""
	}
	var violator FieldViolator
	if errors.As(err, &violator) {
		if v := violator.FieldViolations(); len(v) > 0 {
			return fmt.Sprintf("[%s] %s", v[0].Field, v[0].Message)
		}
	}
	return err.Error()
}
