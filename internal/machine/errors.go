package machine

import (
	"github.com/juju/errors"
	"github.com/temoto/snackmachine/currency"
)

// Invalid argument: input violates a type level rule.
var (
	ErrMoneyNil         = errors.New("money is nil")
	ErrSnackTypeInvalid = errors.New("snack type is not valid")
)

// Invalid state: input is fine but machine state forbids the operation.
var (
	ErrNoCredit          = errors.New("insert money first")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOutOfStock        = errors.New("out of stock")
)

func IsInvalidArgument(err error) bool {
	switch errors.Cause(err) {
	case ErrMoneyNil, ErrSnackTypeInvalid,
		currency.ErrNegative, currency.ErrParse, currency.ErrNominalInvalid:
		return true
	}
	return false
}

func IsInvalidState(err error) bool {
	switch errors.Cause(err) {
	case ErrNoCredit, ErrInsufficientFunds, ErrOutOfStock:
		return true
	}
	return false
}

// reason is a short stat key for rejected operation.
func reason(err error) string {
	switch errors.Cause(err) {
	case ErrMoneyNil:
		return "nil"
	case ErrSnackTypeInvalid:
		return "snack_type"
	case currency.ErrNominalInvalid:
		return "denomination"
	case ErrNoCredit:
		return "no_credit"
	case ErrInsufficientFunds:
		return "insufficient_funds"
	case ErrOutOfStock:
		return "out_of_stock"
	}
	return "other"
}
