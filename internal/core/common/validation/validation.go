package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// report json field names instead of Go field names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates v against its `validate` tags and converts failures into a
// VALIDATION_FAILED AppError with one detail per field.
func Struct(v interface{}) *apperrors.AppError {
	if rv := reflect.Indirect(reflect.ValueOf(v)); rv.Kind() != reflect.Struct {
		return nil
	}
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error(), apperrors.ErrCodeValidationFailed)
	}

	b := NewBuilder()
	for _, fe := range fieldErrs {
		b.Add(fe.Field(), message(fe), apperrors.ErrCodeValidationFailed)
	}
	return b.Err()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// Builder collects field errors produced by rules that tags cannot express.
type Builder struct {
	errs []apperrors.ValidationError
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Add(field, message string, code apperrors.ErrorCode) *Builder {
	b.errs = append(b.errs, apperrors.ValidationError{Field: field, Message: message, Code: string(code)})
	return b
}

// Merge appends the field errors carried by err, if it is a validation AppError.
func (b *Builder) Merge(err *apperrors.AppError) *Builder {
	if err == nil {
		return b
	}
	if details, ok := err.Details.(apperrors.ValidationErrors); ok {
		b.errs = append(b.errs, details.Errors...)
		return b
	}
	b.errs = append(b.errs, apperrors.ValidationError{Message: err.Message, Code: string(err.Code)})
	return b
}

func (b *Builder) Err() *apperrors.AppError {
	if len(b.errs) == 0 {
		return nil
	}
	return apperrors.NewValidationFieldErrors(b.errs)
}
