// Package errors provides standardized error types and helpers for the GeoPackage access layer.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a table, row or extension was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrSchema indicates a table or column structure violation
	ErrSchema = errors.New("schema error")
	// ErrNoPrimaryKey indicates an identity was requested on a table without one
	ErrNoPrimaryKey = errors.New("no primary key")
	// ErrTransactionState indicates unbalanced begin/end calls
	ErrTransactionState = errors.New("transaction state error")
	// ErrIndexNotReady indicates a spatial query before the index was built
	ErrIndexNotReady = errors.New("index not ready")
	// ErrQueryConstruction indicates an invalid SQL clause combination
	ErrQueryConstruction = errors.New("query construction error")
	// ErrStorageIO indicates a failure in the underlying database engine
	ErrStorageIO = errors.New("storage i/o error")
	// ErrEmptyWrite indicates an insert or update with no columns to write
	ErrEmptyWrite = errors.New("empty write set")
)

// SchemaError represents a missing, duplicated or mistyped column
type SchemaError struct {
	Table   string // Table name, if known
	Column  string // Column that violated the requirement
	Message string // Human-readable error message
}

func (e *SchemaError) Error() string {
	switch {
	case e.Table != "" && e.Column != "":
		return fmt.Sprintf("schema error in table %s, column %s: %s", e.Table, e.Column, e.Message)
	case e.Column != "":
		return fmt.Sprintf("schema error, column %s: %s", e.Column, e.Message)
	case e.Table != "":
		return fmt.Sprintf("schema error in table %s: %s", e.Table, e.Message)
	}
	return fmt.Sprintf("schema error: %s", e.Message)
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// NoPrimaryKeyError is returned when a row identity is requested on a table
// without a primary key, or the primary key value is not numeric.
type NoPrimaryKeyError struct {
	Table  string
	Reason string
}

func (e *NoPrimaryKeyError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("no primary key for table %s: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("no primary key for table %s", e.Table)
}

func (e *NoPrimaryKeyError) Unwrap() error {
	return ErrNoPrimaryKey
}

// TransactionStateError represents an unbalanced begin/end sequence
type TransactionStateError struct {
	Message string
}

func (e *TransactionStateError) Error() string {
	return fmt.Sprintf("transaction state: %s", e.Message)
}

func (e *TransactionStateError) Unwrap() error {
	return ErrTransactionState
}

// IndexNotReadyError is returned by spatial index queries before the index is built
type IndexNotReadyError struct {
	Table string
	State string
}

func (e *IndexNotReadyError) Error() string {
	return fmt.Sprintf("spatial index for table %s is not ready (state %s)", e.Table, e.State)
}

func (e *IndexNotReadyError) Unwrap() error {
	return ErrIndexNotReady
}

// QueryConstructionError represents an invalid clause passed to the query builder
type QueryConstructionError struct {
	Clause  string // Clause that failed (e.g., "HAVING", "LIMIT")
	Message string
}

func (e *QueryConstructionError) Error() string {
	return fmt.Sprintf("invalid %s clause: %s", e.Clause, e.Message)
}

func (e *QueryConstructionError) Unwrap() error {
	return ErrQueryConstruction
}

// StorageIOError wraps a failure reported by the database engine
type StorageIOError struct {
	Operation string // Operation being performed (e.g., "query", "commit", "close")
	Table     string // Table involved, if any
	Err       error  // Underlying error
}

func (e *StorageIOError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Table, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

// Is reports both the sentinel and the wrapped error chain.
func (e *StorageIOError) Is(target error) bool {
	return target == ErrStorageIO
}

func (e *StorageIOError) Unwrap() error {
	return e.Err
}

// NotFoundError represents a table, row or extension not found
type NotFoundError struct {
	Resource string // Type of resource (e.g., "table", "row", "extension")
	ID       string // Identifier of the resource
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Helper functions for creating common errors

// NewSchema creates a SchemaError
func NewSchema(table, column, message string) *SchemaError {
	return &SchemaError{
		Table:   table,
		Column:  column,
		Message: message,
	}
}

// NewNoPrimaryKey creates a NoPrimaryKeyError
func NewNoPrimaryKey(table, reason string) *NoPrimaryKeyError {
	return &NoPrimaryKeyError{Table: table, Reason: reason}
}

// NewTransactionState creates a TransactionStateError
func NewTransactionState(message string) *TransactionStateError {
	return &TransactionStateError{Message: message}
}

// NewIndexNotReady creates an IndexNotReadyError
func NewIndexNotReady(table, state string) *IndexNotReadyError {
	return &IndexNotReadyError{Table: table, State: state}
}

// NewQueryConstruction creates a QueryConstructionError
func NewQueryConstruction(clause, message string) *QueryConstructionError {
	return &QueryConstructionError{Clause: clause, Message: message}
}

// NewStorageIO creates a StorageIOError. If err is nil, returns nil.
func NewStorageIO(operation, table string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageIOError{
		Operation: operation,
		Table:     table,
		Err:       err,
	}
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Cleanup merges an error from a close/cleanup path into the primary error.
// A cleanup failure never masks a primary failure; it is only reported when
// the primary operation succeeded.
func Cleanup(primary, cleanup error) error {
	if primary != nil {
		return primary
	}
	return cleanup
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New wraps errors.New for convenience
func New(text string) error {
	return errors.New(text)
}
