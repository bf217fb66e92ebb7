package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the taxonomy of user-facing failure categories. Raw
// backend error shapes never cross into orchestration logic; they are
// classified into one of these kinds first.
type ErrorKind string

const (
	ErrorKindValidation                 ErrorKind = "VALIDATION"
	ErrorKindPermissionDenied           ErrorKind = "PERMISSION_DENIED"
	ErrorKindPartnerAuthorizationFailed ErrorKind = "PARTNER_AUTHORIZATION_FAILED"
	ErrorKindPartnerInsufficientFunds   ErrorKind = "PARTNER_INSUFFICIENT_FUNDS"
	ErrorKindPartnerOther               ErrorKind = "PARTNER_OTHER"
	ErrorKindInternal                   ErrorKind = "INTERNAL"
	ErrorKindUnknown                    ErrorKind = "UNKNOWN"
)

// GatewayError is the raw failure shape returned by the Transfer
// Gateway: a coarse code plus a free-text message. It carries no
// user-facing meaning until classified.
type GatewayError struct {
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// TransferError is a classified failure with a kind from the taxonomy
// and exactly one human-readable message.
type TransferError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *TransferError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *TransferError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a Validation-kind TransferError.
func NewValidationError(message string) *TransferError {
	return &TransferError{Kind: ErrorKindValidation, Message: message}
}

// KindOf extracts the ErrorKind from err, or ErrorKindUnknown when err
// carries no classification.
func KindOf(err error) ErrorKind {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ErrorKindUnknown
}
