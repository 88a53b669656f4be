package db

import (
	"errors"
	"fmt"

	"github.com/nickyhof/KivDB/kql"
	"github.com/nickyhof/KivDB/ps"
)

// Error kinds reported in ErrorInfo.
const (
	KindTokenizer = "tokenizerError"
	KindParser    = "parserError"
	KindStorage   = "storageError"
)

// StorageError reports a failure of the storage layer while executing a
// statement that compiled successfully.
type StorageError struct {
	Operation kql.OperationType
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Operation, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ErrorInfo is the wire form of an execution error.
type ErrorInfo struct {
	Kind   string `json:"kind"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

func (info ErrorInfo) String() string {
	if info.Detail == "" {
		return fmt.Sprintf("%s: %s", info.Kind, info.Code)
	}
	return fmt.Sprintf("%s: %s (%s)", info.Kind, info.Code, info.Detail)
}

// IsCompileError reports whether err was raised before storage was touched.
func IsCompileError(err error) bool {
	var tokenizerErr kql.TokenizerError
	var parserErr kql.ParserError
	return errors.As(err, &tokenizerErr) || errors.As(err, &parserErr)
}

// DescribeError classifies any error returned by Engine.Execute.
func DescribeError(err error) ErrorInfo {
	var tokenizerErr kql.TokenizerError
	if errors.As(err, &tokenizerErr) {
		return ErrorInfo{Kind: KindTokenizer, Code: tokenizerErr.Code(), Detail: tokenizerErr.Text}
	}

	var parserErr kql.ParserError
	if errors.As(err, &parserErr) {
		return ErrorInfo{Kind: KindParser, Code: parserErr.Code()}
	}

	info := ErrorInfo{Kind: KindStorage, Code: "io", Detail: err.Error()}
	switch {
	case errors.Is(err, ps.ErrCorrupt):
		info.Code = "corruptFile"
	case errors.Is(err, ps.ErrKeyTooLarge):
		info.Code = "keyTooLarge"
	case errors.Is(err, ps.ErrValueTooLarge):
		info.Code = "valueTooLarge"
	case errors.Is(err, ps.ErrInvalidEncoding):
		info.Code = "invalidEncoding"
	case errors.Is(err, ps.ErrUnsupportedVersion):
		info.Code = "unsupportedVersion"
	case errors.Is(err, ps.ErrLocked):
		info.Code = "locked"
	case errors.Is(err, ps.ErrClosed), errors.Is(err, ps.ErrNotInitialized):
		info.Code = "closed"
	}
	return info
}
