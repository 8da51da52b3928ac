// Package currency implements exact non-negative money amounts
// and coin tallies keyed by denomination.
package currency

import (
	"github.com/juju/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrNegative = errors.New("money amount must not be negative")
	ErrParse    = errors.New("money amount syntax")
)

// Money is an immutable non-negative decimal amount, e.g. 1.75 dinar.
// Nil *Money means absent value.
type Money struct {
	amount decimal.Decimal
}

var (
	Zero         = MustParse("0")
	QuarterDinar = MustParse("0.25")
	HalfDinar    = MustParse("0.5")
	Dinar        = MustParse("1")
	FiveDinar    = MustParse("5")
	TenDinar     = MustParse("10")
)

// DefaultDenominations returns accepted coins and bills of a stock machine.
// Result is a fresh slice, caller may modify it.
func DefaultDenominations() []*Money {
	return []*Money{QuarterDinar, HalfDinar, Dinar, FiveDinar, TenDinar}
}

func New(amount decimal.Decimal) (*Money, error) {
	if amount.Sign() < 0 {
		return nil, errors.Annotatef(ErrNegative, "amount=%s", amount.String())
	}
	return &Money{amount: amount}, nil
}

func Parse(s string) (*Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Annotatef(ErrParse, "input='%s' err=%v", s, err)
	}
	return New(d)
}

func MustParse(s string) *Money {
	m, err := Parse(s)
	if err != nil {
		panic("code error currency.MustParse: " + err.Error())
	}
	return m
}

func (self *Money) Decimal() decimal.Decimal {
	if self == nil {
		return decimal.Zero
	}
	return self.amount
}

// Add never fails, sum of two non-negative amounts is non-negative.
// Nil other adds nothing.
func (self *Money) Add(other *Money) *Money {
	return &Money{amount: self.Decimal().Add(other.Decimal())}
}

// Sub returns ErrNegative when other is greater than self.
// Nil other subtracts nothing.
func (self *Money) Sub(other *Money) (*Money, error) {
	if self.IsLessThan(other) {
		return nil, errors.Annotatef(ErrNegative, "%s - %s", self, other)
	}
	return &Money{amount: self.Decimal().Sub(other.Decimal())}, nil
}

// IsLessThan is strict. Absent other is never greater, so result is false.
func (self *Money) IsLessThan(other *Money) bool {
	if other == nil {
		return false
	}
	return self.Decimal().LessThan(other.amount)
}

// Equal compares by value: 0.5 equals 0.50.
func (self *Money) Equal(other *Money) bool {
	if self == nil || other == nil {
		return self == nil && other == nil
	}
	return self.amount.Equal(other.amount)
}

func (self *Money) Cmp(other *Money) int { return self.Decimal().Cmp(other.Decimal()) }
func (self *Money) IsZero() bool         { return self.Decimal().IsZero() }

// String is canonical, trailing zeros removed: "1.75", "0.5", "10".
func (self *Money) String() string {
	if self == nil {
		return "(nil)"
	}
	return self.amount.String()
}

// Format is for humans, always two fraction digits.
func (self *Money) Format() string { return self.Decimal().StringFixed(2) }

func (self *Money) MarshalJSON() ([]byte, error) {
	return self.Decimal().MarshalJSON()
}

func (self *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return errors.Annotatef(ErrParse, "json=%s err=%v", string(b), err)
	}
	if d.Sign() < 0 {
		return errors.Annotatef(ErrNegative, "json=%s", string(b))
	}
	self.amount = d
	return nil
}

// key is used to group equal amounts with different exponents, like 0.5 and 0.50.
func (self *Money) key() string { return self.Decimal().String() }
