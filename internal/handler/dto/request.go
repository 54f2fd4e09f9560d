package dto

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mtlprog/tasktrail/internal/domain"
)

// DateLayout is the wire format of due dates.
const DateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Length limits apply after trimming and are enforced by the domain.

// CreateTaskRequest represents the request body for POST /tasks.
type CreateTaskRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	DueDate     string `json:"due_date" validate:"required,datetime=2006-01-02"`
}

// UpdateTaskRequest represents the request body for PUT /tasks/{id}.
type UpdateTaskRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	DueDate     string `json:"due_date" validate:"required,datetime=2006-01-02"`
}

// Due parses the due date. Call after Validate.
func (r CreateTaskRequest) Due() time.Time {
	return mustParseDate(r.DueDate)
}

// Due parses the due date. Call after Validate.
func (r UpdateTaskRequest) Due() time.Time {
	return mustParseDate(r.DueDate)
}

func mustParseDate(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Validate checks a request struct and reports the first violation as a domain.ValidationError.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &domain.ValidationError{Field: "body", Message: err.Error()}
	}

	fe := verrs[0]
	return &domain.ValidationError{Field: fe.Field(), Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	default:
		return "is invalid"
	}
}
