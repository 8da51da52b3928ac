// Package tele reports completed sales out of the machine.
package tele

import (
	"time"

	"github.com/google/uuid"
	"github.com/temoto/snackmachine/currency"
)

// Teler receives one Transaction per successful purchase
// and errors logged by the process.
// Implementations must be safe for concurrent use.
type Teler interface {
	Transaction(*Transaction)
	Error(error)
	Close() error
}

type Transaction struct {
	ID     uuid.UUID       `json:"id"`
	Time   time.Time       `json:"time"`
	Snack  string          `json:"snack"`
	Price  *currency.Money `json:"price"`
	Paid   *currency.Money `json:"paid"`
	Change *currency.Money `json:"change"`
	// inserted coins by nominal
	Coins map[string]uint `json:"coins,omitempty"`
}

func NewTransaction(now time.Time) *Transaction {
	return &Transaction{ID: uuid.New(), Time: now.UTC()}
}

type Noop struct{}

var _ Teler = Noop{} // compile-time interface test

func (Noop) Transaction(*Transaction) {}

func (Noop) Error(error) {}

func (Noop) Close() error { return nil }
