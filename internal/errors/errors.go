package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError carrying the same code, so the
// exported sentinels match any error built from them.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of the outermost AppError in the chain, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeInvalidVariable = "INVALID_VARIABLE"
	CodeEmptyDataset    = "EMPTY_DATASET"
	CodeInsufficientN   = "INSUFFICIENT_GROUP_SIZE"
	CodeDegenerateVar   = "DEGENERATE_VARIANCE"
	CodeSingularDesign  = "SINGULAR_DESIGN"
	CodeNonConvergence  = "NON_CONVERGENCE"
	CodeDuplicateKey    = "DUPLICATE_ANALYSIS_KEY"
	CodeFileNotFound    = "FILE_NOT_FOUND"
	CodeMalformedInput  = "MALFORMED_INPUT"
)

// Sentinels for errors.Is checks. Only the code is compared.
var (
	ErrInvalidVariable       = New(CodeInvalidVariable, "invalid variable")
	ErrEmptyDataset          = New(CodeEmptyDataset, "empty dataset")
	ErrInsufficientGroupSize = New(CodeInsufficientN, "insufficient group size")
	ErrDegenerateVariance    = New(CodeDegenerateVar, "degenerate variance")
	ErrSingularDesign        = New(CodeSingularDesign, "singular design matrix")
	ErrNonConvergence        = New(CodeNonConvergence, "model did not converge")
	ErrDuplicateAnalysisKey  = New(CodeDuplicateKey, "duplicate analysis key")
	ErrFileNotFound          = New(CodeFileNotFound, "file not found")
	ErrMalformedInput        = New(CodeMalformedInput, "malformed input")
	ErrNotFound              = New(CodeNotFound, "not found")
	ErrInvalidInput          = New(CodeInvalidInput, "invalid input")
	ErrConfigInvalid         = New(CodeConfigInvalid, "invalid configuration")
	ErrDatabase              = New(CodeDatabaseError, "database error")
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func InvalidVariable(format string, args ...interface{}) *AppError {
	return Newf(CodeInvalidVariable, format, args...)
}

func EmptyDataset(analysis string) *AppError {
	return Newf(CodeEmptyDataset, "%s: dataset has no rows", analysis)
}

func InsufficientGroupSize(format string, args ...interface{}) *AppError {
	return Newf(CodeInsufficientN, format, args...)
}

func DegenerateVariance(format string, args ...interface{}) *AppError {
	return Newf(CodeDegenerateVar, format, args...)
}

func SingularDesign(format string, args ...interface{}) *AppError {
	return Newf(CodeSingularDesign, format, args...)
}

func NonConvergence(format string, args ...interface{}) *AppError {
	return Newf(CodeNonConvergence, format, args...)
}

func DuplicateAnalysisKey(format string, args ...interface{}) *AppError {
	return Newf(CodeDuplicateKey, format, args...)
}

func FileNotFound(path string) *AppError {
	return Newf(CodeFileNotFound, "file not found: %s", path)
}

func MalformedInput(format string, args ...interface{}) *AppError {
	return Newf(CodeMalformedInput, format, args...)
}
