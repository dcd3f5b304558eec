package store

import (
	"errors"
	"fmt"
)

// Machine-readable codes identifying which adapter operation was in flight.
const (
	CodeInit            = "INIT_ERROR"
	CodeConnection      = "CONNECTION_ERROR"
	CodeLoadCategories  = "LOAD_CATEGORIES_ERROR"
	CodeSaveCategories  = "SAVE_CATEGORIES_ERROR"
	CodeCreateCategory  = "CREATE_CATEGORY_ERROR"
	CodeRenameCategory  = "RENAME_CATEGORY_ERROR"
	CodeDeleteCategory  = "DELETE_CATEGORY_ERROR"
	CodeReorder         = "REORDER_CATEGORIES_ERROR"
	CodeLoadMatrix      = "LOAD_MATRIX_ERROR"
	CodeSaveMatrix      = "SAVE_MATRIX_ERROR"
	CodeSetCell         = "SET_CELL_ERROR"
	CodeBulkSetRow      = "BULK_SET_ROW_ERROR"
	CodeReset           = "RESET_ERROR"
	CodeRemoteRejection = "REMOTE_REJECTION"
)

// AdapterError wraps a storage or transport failure with the operation code
// it happened under. The underlying cause is kept for errors.Is/As.
type AdapterError struct {
	Code string
	Op   string
	Err  error
}

func (e *AdapterError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// WrapError builds an AdapterError unless err already is one, so codes are
// never double-wrapped when adapters layer over each other.
func WrapError(code, op string, err error) error {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return err
	}
	return &AdapterError{Code: code, Op: op, Err: err}
}

// IsAdapterError reports whether err carries an adapter failure, returning it.
func IsAdapterError(err error) (*AdapterError, bool) {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
