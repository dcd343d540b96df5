package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	apperrors "github.com/yourusername/vehicle-api/internal/pkg/errors"
)

// ValidationError содержит ошибки валидации по полям.
// Causes: доменные причины (например, repository.ErrDuplicateEmail), доступные через errors.Is.
type ValidationError struct {
	Fields map[string]string
	Causes []error
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", apperrors.ErrValidation, strings.Join(parts, "; "))
}

// Unwrap позволяет проверять ошибку через errors.Is(err, apperrors.ErrValidation) и по причинам
func (e *ValidationError) Unwrap() []error {
	return append([]error{apperrors.ErrValidation}, e.Causes...)
}

// add добавляет ошибку поля и, если задана, доменную причину
func (e *ValidationError) add(field, message string, cause error) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
	if cause != nil {
		e.Causes = append(e.Causes, cause)
	}
}

// newFieldError создает ValidationError для одного поля
func newFieldError(field, message string, cause error) *ValidationError {
	e := &ValidationError{}
	e.add(field, message, cause)
	return e
}

// fromValidation превращает ошибки ozzo-validation в ValidationError.
// Внутренние ошибки правил возвращаются как есть.
func fromValidation(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	fields := make(map[string]string, len(errs))
	for field, fieldErr := range errs {
		if fieldErr != nil {
			fields[field] = fieldErr.Error()
		}
	}
	return &ValidationError{Fields: fields}
}
