// Package faults holds the error taxonomy of the upload pipeline.
// Every code is classified once as either transient (the same work may be
// attempted again) or fatal (the session must be aborted).
package faults

import (
	"errors"
	"fmt"
)

// Code names specific failure of the upload pipeline
type Code string

const (
	// CodeInvalidPayloadLength indicates an empty payload, rejected before any network call.
	CodeInvalidPayloadLength Code = "INVALID_PAYLOAD_LENGTH"

	// CodeInvalidConfig indicates pipeline settings that can never produce a valid transaction.
	CodeInvalidConfig Code = "INVALID_CONFIGURATION"

	// CodeFundingQueryFailed indicates the minimum balance query failed.
	CodeFundingQueryFailed Code = "FUNDING_QUERY_FAILED"

	// CodeZeroFunding indicates the network reported zero as minimum balance.
	CodeZeroFunding Code = "ZERO_FUNDING"

	// CodeAnchorFetchFailed indicates the recent blockhash could not be fetched.
	CodeAnchorFetchFailed Code = "ANCHOR_FETCH_FAILED"

	// CodeBuildFailed indicates a transaction could not be built or signed.
	CodeBuildFailed Code = "BUILD_FAILED"

	// CodeAccountCreationRejected indicates the account creation transaction landed with an error.
	CodeAccountCreationRejected Code = "ACCOUNT_CREATION_REJECTED"

	// CodeAuthorityChangeRejected indicates the set authority transaction landed with an error.
	CodeAuthorityChangeRejected Code = "AUTHORITY_CHANGE_REJECTED"

	// CodeConfirmationTimeout indicates a single transaction was not confirmed in time.
	CodeConfirmationTimeout Code = "CONFIRMATION_TIMEOUT"

	// CodeChunkSendRejected indicates a chunk transaction landed with an error.
	CodeChunkSendRejected Code = "CHUNK_SEND_REJECTED"

	// CodeStatusQueryFailed indicates a signature status query failed.
	CodeStatusQueryFailed Code = "STATUS_QUERY_FAILED"

	// CodeRpcTransport indicates a lower level network failure.
	CodeRpcTransport Code = "RPC_TRANSPORT_ERROR"

	// CodeRetryBudgetExhausted indicates chunks were still pending after the last allowed round.
	CodeRetryBudgetExhausted Code = "RETRY_BUDGET_EXHAUSTED"
)

// Category tells whether failed work may be attempted again
type Category int

const (
	Transient Category = iota
	Fatal
)

func (c Category) String() string {
	if c == Transient {
		return "transient"
	}

	return "fatal"
}

var categories = map[Code]Category{
	CodeInvalidPayloadLength:    Fatal,
	CodeInvalidConfig:           Fatal,
	CodeFundingQueryFailed:      Fatal,
	CodeZeroFunding:             Fatal,
	CodeAnchorFetchFailed:       Fatal,
	CodeBuildFailed:             Fatal,
	CodeAccountCreationRejected: Fatal,
	CodeAuthorityChangeRejected: Fatal,
	CodeConfirmationTimeout:     Fatal,
	CodeChunkSendRejected:       Transient,
	CodeStatusQueryFailed:       Transient,
	CodeRpcTransport:            Fatal,
	CodeRetryBudgetExhausted:    Fatal,
}

// CategoryOf returns category of code. Unknown codes are fatal.
func CategoryOf(code Code) Category {
	c, ok := categories[code]
	if !ok {
		return Fatal
	}

	return c
}

// Error is failure of the upload pipeline tagged with Code
type Error struct {
	Code Code
	Op   string
	Err  error
}

func New(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

func Newf(code Code, op string, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code, so sentinel values
// like ErrZeroFunding can be used with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Code == e.Code && t.Op == "" && t.Err == nil
}

func (e *Error) Category() Category {
	return CategoryOf(e.Code)
}

var (
	ErrInvalidPayloadLength    = &Error{Code: CodeInvalidPayloadLength}
	ErrInvalidConfig           = &Error{Code: CodeInvalidConfig}
	ErrFundingQueryFailed      = &Error{Code: CodeFundingQueryFailed}
	ErrZeroFunding             = &Error{Code: CodeZeroFunding}
	ErrAnchorFetchFailed       = &Error{Code: CodeAnchorFetchFailed}
	ErrBuildFailed             = &Error{Code: CodeBuildFailed}
	ErrAccountCreationRejected = &Error{Code: CodeAccountCreationRejected}
	ErrAuthorityChangeRejected = &Error{Code: CodeAuthorityChangeRejected}
	ErrConfirmationTimeout     = &Error{Code: CodeConfirmationTimeout}
	ErrChunkSendRejected       = &Error{Code: CodeChunkSendRejected}
	ErrStatusQueryFailed       = &Error{Code: CodeStatusQueryFailed}
	ErrRpcTransport            = &Error{Code: CodeRpcTransport}
	ErrRetryBudgetExhausted    = &Error{Code: CodeRetryBudgetExhausted}
)

// CodeOf extracts code from err. Errors outside the taxonomy yield empty code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ""
}

// IsTransient reports whether err is tagged with a transient code
func IsTransient(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	return e.Category() == Transient
}
