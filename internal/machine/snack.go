package machine

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/temoto/snackmachine/currency"
)

// SnackType is a closed set, no new types appear at runtime.
type SnackType uint8

const (
	snackTypeInvalid SnackType = iota
	ChewingGum
	Chips
	Chocolate
	snackTypeCount
)

var snackTypeNames = [snackTypeCount]string{
	snackTypeInvalid: "invalid",
	ChewingGum:       "chewing_gum",
	Chips:            "chips",
	Chocolate:        "chocolate",
}

func SnackTypes() []SnackType { return []SnackType{ChewingGum, Chips, Chocolate} }

func (t SnackType) Valid() bool { return t > snackTypeInvalid && t < snackTypeCount }

func (t SnackType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("SnackType(%d)", uint8(t))
	}
	return snackTypeNames[t]
}

func ParseSnackType(s string) (SnackType, error) {
	for _, t := range SnackTypes() {
		if snackTypeNames[t] == s {
			return t, nil
		}
	}
	return snackTypeInvalid, errors.Annotatef(ErrSnackTypeInvalid, "name='%s'", s)
}

// Snack is a read-only view of one inventory slot.
type Snack struct {
	Type     SnackType
	Price    *currency.Money
	Quantity uint32
}

func (s Snack) String() string {
	return fmt.Sprintf("snack.%s price=%s quantity=%d", s.Type, s.Price, s.Quantity)
}
