package errs

import (
	"errors"
	"fmt"
)

// Kind identifies the pipeline stage an error belongs to.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindDataSource    Kind = "data_source"
	KindFeature       Kind = "feature"
	KindModel         Kind = "model"
	KindSignal        Kind = "signal"
	KindBacktest      Kind = "backtest"
	KindUnknown       Kind = "unknown"
)

// Error represents a classified pipeline error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new classified error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap classifies err under kind and code.
func Wrap(kind Kind, code string, err error, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, a...), Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the code of the first classified error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Configuration creates a configuration error.
func Configuration(code, message string) *Error {
	return New(KindConfiguration, code, message)
}

// Configurationf creates a configuration error with formatting.
func Configurationf(code, format string, a ...interface{}) *Error {
	return Configuration(code, fmt.Sprintf(format, a...))
}

// DataSource creates a data source error.
func DataSource(code, message string) *Error {
	return New(KindDataSource, code, message)
}

// Feature creates a feature error.
func Feature(code, message string) *Error {
	return New(KindFeature, code, message)
}

// Model creates a model error.
func Model(code, message string) *Error {
	return New(KindModel, code, message)
}

// Signal creates a signal error.
func Signal(code, message string) *Error {
	return New(KindSignal, code, message)
}

// Backtest creates a backtest error.
func Backtest(code, message string) *Error {
	return New(KindBacktest, code, message)
}
