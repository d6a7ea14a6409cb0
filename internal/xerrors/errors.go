// Package xerrors provides the structured error type used across swathstore.
package xerrors

import "fmt"

// Kind classifies a StoreError so callers can branch with xerrors.Is
// against the Kind values below instead of parsing strings.
type Kind string

// Error kinds produced by the store, merge, interpolation and gap-detection
// layers.
const (
	KindIO             Kind = "io_error"
	KindSchemaConflict Kind = "schema_conflict"
	KindMergeBounds    Kind = "merge_bounds_error"
	KindCoordConflict  Kind = "coordinate_conflict"
	KindAttrConflict   Kind = "attribute_conflict"
	KindInterpInput    Kind = "interp_input_error"
	KindInterpOrder    Kind = "interp_order_error"
	KindRechunkUnsupp  Kind = "rechunk_unsupported"
)

// StoreError is a structured error carrying a Kind, free-text context and
// an optional wrapped cause.
type StoreError struct {
	Kind    Kind
	Context string
	Cause   error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Context)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.Cause)
}

// Unwrap provides compatibility with errors.Unwrap/errors.Is.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// New builds a StoreError with no wrapped cause.
func New(kind Kind, context string) error {
	return &StoreError{Kind: kind, Context: context}
}

// Wrap builds a StoreError that wraps cause under the given kind and
// context. Returns nil if cause is nil, mirroring utils.WrapError in the
// HDF5 reader this package descends from.
func Wrap(kind Kind, context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &StoreError{Kind: kind, Context: context, Cause: cause}
}

// Is reports whether err is a StoreError of the given kind.
func Is(err error, kind Kind) bool {
	se, ok := err.(*StoreError)
	if !ok {
		return false
	}
	return se.Kind == kind
}
