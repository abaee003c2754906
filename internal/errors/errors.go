package errors

import (
	"fmt"
	"time"
)

// Error types for the lightning-code-watcher system
type ErrorType string

const (
	// Watching errors
	ErrorTypeWatch ErrorType = "watch"

	// Analysis errors
	ErrorTypeAnalysis ErrorType = "analysis"
	ErrorTypeTimeout  ErrorType = "timeout"

	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypePermission   ErrorType = "permission"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"

	// Internal errors
	ErrorTypeInternal ErrorType = "internal"
)

// WatchError represents an error raised while watching the file system
type WatchError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewWatchError creates a new watch error with context
func NewWatchError(op, path string, err error) *WatchError {
	return &WatchError{
		Type:       ErrorTypeWatch,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *WatchError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s failed for %s: %v", e.Type, e.Operation, e.Path, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Type, e.Operation, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *WatchError) Unwrap() error {
	return e.Underlying
}

// AnalysisError represents a failure from the external analysis collaborator
type AnalysisError struct {
	Type       ErrorType
	FilePath   string
	Source     string
	Underlying error
	Timestamp  time.Time
}

// NewAnalysisError creates a new analysis error
func NewAnalysisError(filePath, source string, err error) *AnalysisError {
	return &AnalysisError{
		Type:       ErrorTypeAnalysis,
		FilePath:   filePath,
		Source:     source,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithTimeout marks the error as a timeout
func (e *AnalysisError) WithTimeout() *AnalysisError {
	e.Type = ErrorTypeTimeout
	return e
}

// Error implements the error interface
func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s analysis (%s) failed for %s: %v", e.Type, e.Source, e.FilePath, e.Underlying)
}

// Unwrap returns the underlying error
func (e *AnalysisError) Unwrap() error {
	return e.Underlying
}

// FileError represents a file-related error
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a new file error
func NewFileError(op, path string, err error) *FileError {
	errorType := ErrorTypeFileNotFound
	if isPermissionError(err) {
		errorType = ErrorTypePermission
	}

	return &FileError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// isPermissionError checks if the error is a permission error
func isPermissionError(err error) bool {
	errStr := err.Error()
	return errStr == "permission denied" || errStr == "access denied"
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}
