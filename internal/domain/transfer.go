package domain

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxDescriptionLength is the hard limit on the transfer description.
// It is imposed by the partner's authorization payload, not by the UI:
// a longer description must fail validation rather than be silently
// truncated, so what the user sees matches what gets authorized.
const MaxDescriptionLength = 10

// TransferRequest describes what to move. It is immutable once handed
// to the orchestrator and discarded on terminal state.
type TransferRequest struct {
	SourceAccountID      uuid.UUID
	DestinationAccountID uuid.UUID
	Amount               decimal.Decimal // ABSOLUTE VALUE (Always Positive)
	Description          string
}

// Validate ensures the request adheres to shape-level domain rules.
// Affordability and account existence are checked by the validator
// usecase against an account snapshot; this covers only what the
// request alone can answer.
func (r *TransferRequest) Validate() error {
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("transfer amount must be positive")
	}

	if len([]rune(r.Description)) > MaxDescriptionLength {
		return errors.New("transfer description exceeds the partner limit")
	}

	if r.SourceAccountID == r.DestinationAccountID {
		return errors.New("source and destination accounts must differ")
	}

	return nil
}

// GatewayResult is the successful outcome of a single logical
// ExecuteTransfer call. AuthorizationCreated reports whether the
// partner had to create a fresh authorization for this transfer,
// which matters because a freshly created authorization is the step
// most likely to require renewed user consent on a later retry.
type GatewayResult struct {
	AuthorizationCreated bool
	TransferID           string
}

// TransferOutcome is the payload attached to terminal states.
type TransferOutcome struct {
	AuthorizationCreated bool
	TransferID           string
	ErrorKind            ErrorKind
	ErrorDetail          string
}
