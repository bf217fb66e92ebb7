package classifier

import (
	"errors"
	"strings"

	"github.com/goalvault/goalvault-backend/internal/domain"
)

// Gateway error codes the classifier recognizes. Partner failures
// arrive either under the generic PARTNER_ERROR code or under an
// aggregator-branded code such as PLAID_ERROR; both take the partner
// branch.
const (
	CodeValidationError  = "VALIDATION_ERROR"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodePartnerError     = "PARTNER_ERROR"
	CodePlaidError       = "PLAID_ERROR"
	CodeInternalError    = "INTERNAL_ERROR"
)

const (
	permissionDeniedMessage = "You do not have permission to perform this transfer"
	authorizationMessage    = "The partner authorization could not be used. Please re-authorize the transfer and try again"
	insufficientMessage     = "The partner reported insufficient funds in the source account. Your available balance may have changed"
	internalMessage         = "Something went wrong on our side. Please try again later"
	unknownMessage          = "The transfer could not be completed. Please try again later"
)

// Classify maps a raw gateway failure into an ErrorKind and exactly
// one user-facing message. It is a pure mapping with no network or
// state access, and it is total: any input, including unrecognized
// codes or errors that are not gateway errors at all, yields a
// defined result.
func Classify(err error) (domain.ErrorKind, string) {
	var gwErr *domain.GatewayError
	if !errors.As(err, &gwErr) {
		return domain.ErrorKindUnknown, unknownMessage
	}

	switch gwErr.Code {
	case CodeValidationError:
		return domain.ErrorKindValidation, "Validation error: " + gwErr.Message
	case CodePermissionDenied:
		return domain.ErrorKindPermissionDenied, permissionDeniedMessage
	case CodePartnerError, CodePlaidError:
		return classifyPartner(gwErr.Message)
	case CodeInternalError:
		// Raw internal detail is deliberately not surfaced.
		return domain.ErrorKindInternal, internalMessage
	default:
		return domain.ErrorKindUnknown, unknownMessage
	}
}

// classifyPartner distinguishes aggregator failures by message
// content. The insufficient-funds message is worded differently from
// the local validator's: this one reflects the partner's live check,
// which may disagree with the local snapshot.
func classifyPartner(message string) (domain.ErrorKind, string) {
	lower := strings.ToLower(message)

	if strings.Contains(lower, "authorization") {
		return domain.ErrorKindPartnerAuthorizationFailed, authorizationMessage
	}
	if strings.Contains(lower, "insufficient funds") {
		return domain.ErrorKindPartnerInsufficientFunds, insufficientMessage
	}
	return domain.ErrorKindPartnerOther, message
}

// ClassifyError wraps Classify into a *domain.TransferError that keeps
// the raw error available for errors.As inspection.
func ClassifyError(err error) *domain.TransferError {
	kind, message := Classify(err)
	return &domain.TransferError{Kind: kind, Message: message, Err: err}
}
