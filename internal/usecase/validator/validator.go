package validator

import (
	"fmt"

	"github.com/goalvault/goalvault-backend/internal/domain"
)

// minorUnits maps ISO 4217 currency codes to their minor-unit digit
// count when it differs from the common case of 2.
var minorUnits = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"BHD": 3,
	"KWD": 3,
}

// MinorUnitsFor returns the number of minor-unit digits for a currency code.
func MinorUnitsFor(currency string) int32 {
	if units, ok := minorUnits[currency]; ok {
		return units
	}
	return 2
}

// Validate checks a transfer request against a source account snapshot.
// Logic:
//  1. Check request shape (positive amount, description limit, distinct accounts)
//  2. Check the request references the supplied source account
//  3. Check the amount fits the currency's minor-unit precision
//  4. Check affordability against the snapshot balance
//
// The affordability check is local and optimistic: it gives fast
// feedback and avoids an obviously doomed remote call, but the
// partner's live check remains authoritative and may still reject for
// insufficient funds (snapshot staleness, holds, pending debits).
//
// Validate is pure: no side effects, and identical inputs always yield
// identical results.
func Validate(req *domain.TransferRequest, snapshot *domain.Account) error {
	if err := req.Validate(); err != nil {
		return domain.NewValidationError(err.Error())
	}

	if snapshot == nil || snapshot.ID != req.SourceAccountID {
		return domain.NewValidationError("source account must reference a known account")
	}

	units := MinorUnitsFor(snapshot.Currency)
	if !req.Amount.Equal(req.Amount.Round(units)) {
		return domain.NewValidationError(fmt.Sprintf(
			"transfer amount has more precision than %s allows", snapshot.Currency))
	}

	if req.Amount.GreaterThan(snapshot.Balance) {
		return domain.NewValidationError(fmt.Sprintf(
			"insufficient funds: amount %s exceeds available balance %s",
			req.Amount.StringFixed(units), snapshot.Balance.StringFixed(units)))
	}

	return nil
}
