package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur during external service
// interactions.
var (
	// ErrUnexpectedStatus indicates that a remote service answered with a
	// non-success HTTP status.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrServiceUnavailable indicates that the external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInvalidResponse indicates that the service returned an invalid
	// response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrCacheCorrupted indicates that cached data is corrupted or invalid.
	ErrCacheCorrupted = errors.New("cache corrupted")
)

// FetchError represents a failed evidence fetch.
type FetchError struct {
	// Source names the evidence provider.
	Source string

	// StatusCode is the HTTP status when the failure was a bad status.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for FetchError.
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error: source=%s, status=%d, err=%v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error: source=%s, err=%v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError creates a new FetchError.
func NewFetchError(source string, statusCode int, err error) *FetchError {
	return &FetchError{Source: source, StatusCode: statusCode, Err: err}
}

// StoreError represents a failed document or history store operation.
type StoreError struct {
	// Collection is the collection path or table involved.
	Collection string

	// Operation is the name of the store operation that failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: operation=%s, collection=%s, err=%v", e.Operation, e.Collection, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError creates a new StoreError.
func NewStoreError(collection, operation string, err error) *StoreError {
	return &StoreError{Collection: collection, Operation: operation, Err: err}
}

// CacheError represents an error from cache operations.
// It includes the key and operation that failed.
type CacheError struct {
	// Key is the cache key that was involved in the failed operation.
	Key string

	// Operation is the name of the cache operation that failed.
	Operation string

	// Err is the underlying error that caused the cache operation to fail.
	Err error
}

// Error implements the error interface for CacheError.
func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *CacheError) Unwrap() error { return e.Err }

// NewCacheError creates a new CacheError with the given details.
func NewCacheError(key, operation string, err error) *CacheError {
	return &CacheError{
		Key:       key,
		Operation: operation,
		Err:       err,
	}
}
