// Package serviceerr defines the error taxonomy shared by record stores and services.
//
// Every error produced here is a *goerrors.Error carrying a category, an HTTP status
// code and a stable text code, so a web layer can map it to a response without knowing
// which backend produced it.
package serviceerr

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to every error of the taxonomy.
const (
	TextCodeNotFound        = "NOT_FOUND"
	TextCodeNoResult        = "NO_RESULT"
	TextCodeMultipleResults = "MULTIPLE_RESULTS"
	TextCodeTypeMismatch    = "TYPE_MISMATCH"
	TextCodeValidation      = "VALIDATION"
	TextCodeStoreError      = "STORE_ERROR"
	TextCodeUnsupported     = "UNSUPPORTED"
)

// NotFound reports that a requested id or filter produced no record where one was expected.
func NotFound(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(TextCodeNotFound)
}

// NoResult reports that One matched zero records.
func NoResult(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(TextCodeNoResult)
}

// MultipleResults reports that One matched more than one record.
func MultipleResults(count int, format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode(TextCodeMultipleResults).
		WithMetadata(map[string]any{"count": count})
}

// TypeMismatch reports an object that does not belong to the service's managed type.
func TypeMismatch(got any, want string) error {
	return goerrors.New(fmt.Sprintf("%T is not of type %s", got, want), goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeTypeMismatch)
}

// Validation reports missing or malformed attributes. fields maps attribute names to messages.
func Validation(message string, fields map[string]string) error {
	err := goerrors.New(message, goerrors.CategoryValidation).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeValidation)
	if len(fields) > 0 {
		meta := make(map[string]any, len(fields))
		for k, v := range fields {
			meta[k] = v
		}
		err = err.WithMetadata(meta)
	}
	return err
}

// StoreError wraps a backend failure, keeping the cause reachable through errors.Unwrap.
func StoreError(cause error, format string, args ...any) error {
	return goerrors.Wrap(cause, goerrors.CategoryInternal, fmt.Sprintf(format, args...)).
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeStoreError)
}

// Unsupported reports an operation the backend cannot perform.
func Unsupported(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryOperation).
		WithCode(http.StatusNotImplemented).
		WithTextCode(TextCodeUnsupported)
}

// TextCode returns the text code of the outermost taxonomy error in err's chain.
func TextCode(err error) string {
	var e *goerrors.Error
	if errors.As(err, &e) {
		return e.TextCode
	}
	return ""
}

// StatusCode returns the HTTP status associated with err, or 500 for foreign errors.
func StatusCode(err error) int {
	var e *goerrors.Error
	if errors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	return http.StatusInternalServerError
}

func IsNotFound(err error) bool        { return TextCode(err) == TextCodeNotFound }
func IsNoResult(err error) bool        { return TextCode(err) == TextCodeNoResult }
func IsMultipleResults(err error) bool { return TextCode(err) == TextCodeMultipleResults }
func IsTypeMismatch(err error) bool    { return TextCode(err) == TextCodeTypeMismatch }
func IsValidation(err error) bool      { return TextCode(err) == TextCodeValidation }
func IsStoreError(err error) bool      { return TextCode(err) == TextCodeStoreError }
func IsUnsupported(err error) bool     { return TextCode(err) == TextCodeUnsupported }
