package service

import (
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Error classes. Every error returned by this package, except storage
// failures, matches exactly one of them with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrEmptyCart  = errors.New("shopping cart is empty")
)

// Error kinds, each unwrapping to its class.
var (
	ErrRequired            = newKind(ErrValidation, "required")
	ErrDuplicateIngredient = newKind(ErrValidation, "duplicate ingredient")
	ErrDuplicateTag        = newKind(ErrValidation, "duplicate tag")
	ErrOutOfRange          = newKind(ErrValidation, "out of range")
	ErrInvalidUsername     = newKind(ErrValidation, "invalid username")
	ErrWrongPassword       = newKind(ErrValidation, "wrong password")
	ErrInvalidColor        = newKind(ErrValidation, "invalid color")
	ErrInvalidImage        = newKind(ErrValidation, "invalid image")

	ErrLoginUserNotFound         = newKind(ErrValidation, "user not found")
	ErrLoginPasswordDoesNotMatch = newKind(ErrValidation, "password does not match")

	ErrDuplicateRecipeName = newKind(ErrConflict, "duplicate recipe name")
	ErrAlreadyExists       = newKind(ErrConflict, "already exists")
	ErrSelfFollow          = newKind(ErrConflict, "self follow")
)

type Kind struct {
	class error
	name  string
}

func newKind(class error, name string) *Kind {
	return &Kind{class: class, name: name}
}

func (k *Kind) Error() string { return k.name }

func (k *Kind) Unwrap() error { return k.class }

// FieldError pins an error kind to the request field that caused it.
type FieldError struct {
	Field   string
	Kind    error
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return e.Kind }

func fieldErr(field string, kind error, format string, args ...interface{}) error {
	return &FieldError{Field: field, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// notFound converts gorm.ErrRecordNotFound into a FieldError and wraps
// anything else.
func notFound(err error, field, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fieldErr(field, ErrNotFound, "%s", msg)
	}
	return errors.Wrap(err, msg)
}
