package model

import "fmt"

// ValidationError reports a bar sequence that violates the engine's input contract.
type ValidationError struct {
	Index  int // position in the input sequence
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid bar at index %d: %s %s", e.Index, e.Field, e.Reason)
}

// FetchError wraps a Bar Source failure for one symbol.
type FetchError struct {
	Symbol   string
	Exchange string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s:%s: %v", e.Exchange, e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StorageError wraps a Persistence Gateway failure with the operation that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// WrapStorage returns nil for a nil err, otherwise a *StorageError.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
