// Package model содержит валидаторы для моделей.
//
// Группа: BASE - Базовые компоненты
// Содержит: Validator, ValidationError, ValidationErrors, валидаторы
package model

import (
	"fmt"
	"strings"
	"time"
)

// Validator представляет интерфейс валидатора
type Validator interface {
	Validate() error
}

// ValidationError представляет ошибку валидации
type ValidationError struct {
	Field   string
	Message string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors представляет множество ошибок валидации
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// HasErrors проверяет, есть ли ошибки валидации
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// ValidateRequired проверяет, что поле не пустое
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// ValidateISODate проверяет, что строка является датой в формате YYYY-MM-DD
func ValidateISODate(field, value string) error {
	if value == "" {
		return ValidationError{Field: field, Message: "is required"}
	}
	if _, err := time.Parse(DateLayout, value); err != nil {
		return ValidationError{Field: field, Message: "must be a YYYY-MM-DD date"}
	}
	return nil
}
