package errextract

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestExtract_ValidationError(t *testing.T) {
	cause := NewValidationError(FieldViolation{Field: "name", Message: "must not be blank"})
	value := apiError{Status: 400, Code: "E001", Message: "bad request"}

	rec, ok := Extract(value, cause)
	require.True(t, ok)

	require.NotNil(t, rec.HTTPStatus)
	assert.Equal(t, 400, *rec.HTTPStatus)
	assert.Equal(t, "400", rec.Status())
	assert.Equal(t, "E001", rec.ErrorCode)
	assert.Equal(t, "bad request", rec.Message)
	assert.Equal(t, "[name] must not be blank", rec.StackTrace)
	assert.Equal(t, "github.com/tuncerburak97/munzi/internal/errextract.ValidationError", rec.ErrorType)
	assert.False(t, rec.Verbose())
}

func TestExtract_WrappedViolation(t *testing.T) {
	cause := fmt.Errorf("create: %w", NewValidationError(FieldViolation{Field: "email", Message: "invalid"}))
	rec, ok := Extract(map[string]any{"httpStatus": 422}, cause)
	require.True(t, ok)
	assert.Equal(t, "[email] invalid", rec.StackTrace)
	assert.Equal(t, "fmt.wrapError", rec.ErrorType)
}

func TestExtract_ProbeOrder(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		status  string
		code    string
		message string
	}{
		{
			name:    "first probe wins",
			value:   `{"httpStatus":404,"status":500,"errorCode":"A","code":"B","message":"m","detail":"d"}`,
			status:  "404",
			code:    "A",
			message: "m",
		},
		{
			name:    "statusCodeValue fallback",
			value:   `{"statusCodeValue":503,"body":{"code":"NESTED","errorMessage":"down"}}`,
			status:  "503",
			code:    "NESTED",
			message: "down",
		},
		{
			name:    "properties error code",
			value:   `{"status":409,"properties":{"errorCode":"P1"},"detail":"conflict"}`,
			status:  "409",
			code:    "P1",
			message: "conflict",
		},
		{
			name:    "body fields",
			value:   `{"body":{"errorCode":"B2","message":"inner"}}`,
			status:  "null",
			code:    "B2",
			message: "inner",
		},
		{
			name:    "wrong type falls through to next probe",
			value:   `{"status":"oops","statusCodeValue":418,"code":{"x":1},"body":{"code":7}}`,
			status:  "418",
			code:    "7",
			message: "",
		},
		{
			name:   "numeric string status",
			value:  `{"status":"401"}`,
			status: "401",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := Extract(json.RawMessage(tt.value), errors.New("boom"))
			require.True(t, ok)
			assert.Equal(t, tt.status, rec.Status())
			assert.Equal(t, tt.code, rec.ErrorCode)
			assert.Equal(t, tt.message, rec.Message)
			assert.Equal(t, "boom", rec.StackTrace)
		})
	}
}

func TestExtract_Skips(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"nil", nil},
		{"empty object", map[string]any{}},
		{"array", []int{1, 2}},
		{"scalar string", "not json"},
		{"number", 42},
		{"unmarshalable", make(chan int)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Extract(tt.value, errors.New("x"))
			assert.False(t, ok)
		})
	}
}

func TestExtract_Verbose(t *testing.T) {
	rec, ok := Extract(`{"status":502,"message":"bad gateway"}`, nil)
	require.True(t, ok)
	assert.True(t, rec.Verbose())
	assert.Empty(t, rec.ErrorType)
	assert.Empty(t, rec.StackTrace)
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "", TypeName(nil))
	assert.Equal(t, "errors.errorString", TypeName(errors.New("x")))
	assert.Equal(t, "github.com/gofiber/fiber/v2.Error", TypeName(fiber.NewError(400, "x")))
	assert.Equal(t, "custom.Kind", TypeName(named{}))
}

type named struct{}

func (named) Error() string     { return "named" }
func (named) ErrorType() string { return "custom.Kind" }

func TestProbes_Order(t *testing.T) {
	list := Probes()
	require.NotEmpty(t, list)
	assert.Equal(t, "$.httpStatus", list[0].Path)
	assert.Equal(t, FieldHTTPStatus, list[0].Field)

	list[0].Path = "mutated"
	assert.Equal(t, "$.httpStatus", Probes()[0].Path)
}

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError(
		FieldViolation{Field: "name", Message: "must not be blank"},
		FieldViolation{Field: "age", Message: "must be positive"},
	)
	assert.Equal(t, "validation failed: name: must not be blank; age: must be positive", err.Error())
}
