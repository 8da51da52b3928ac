// Package machine is the snack machine transaction: insert coins, buy, get change.
// Overview:
// - InsertMoney accepts only whitelisted denominations into transaction credit
// - BuySnack checks credit and stock, then atomically moves credit inside,
//   takes one snack and returns change
// - every method holds one lock, so concurrent callers are linearizable
package machine

import (
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/snackmachine/currency"
	"github.com/temoto/snackmachine/helpers"
	machine_config "github.com/temoto/snackmachine/internal/machine/config"
	"github.com/temoto/snackmachine/internal/tele"
	"github.com/temoto/snackmachine/log2"
)

type Machine struct { //nolint:maligned
	Log  *log2.Log
	lk   sync.Mutex
	tele tele.Teler
	now  func() time.Time

	inTransaction *currency.Money
	credit        currency.NominalGroup // coins of current transaction
	inside        *currency.Money
	cashbox       currency.NominalGroup

	slots [snackTypeCount]slot
	stat  Stat
}

type slot struct {
	price    *currency.Money
	quantity uint32
}

func New(log *log2.Log, c machine_config.Config) (*Machine, error) {
	cat, err := c.Parse()
	if err != nil {
		return nil, errors.Annotate(err, "machine config")
	}
	defConfig := machine_config.Default()
	defCatalog, err := defConfig.Parse()
	if err != nil {
		panic("code error machine_config.Default() invalid: " + err.Error())
	}

	self := &Machine{
		Log:           log,
		tele:          tele.Noop{},
		now:           time.Now,
		inTransaction: currency.Zero,
		inside:        currency.Zero,
	}
	self.credit.SetValid(cat.Denominations)
	self.cashbox.SetValid(cat.Denominations)
	self.stat.reset()

	errs := make([]error, 0)
	for name := range cat.Items {
		if _, err := ParseSnackType(name); err != nil {
			errs = append(errs, errors.Annotatef(err, "snack=%s", name))
		}
	}
	for _, t := range SnackTypes() {
		item, ok := cat.Items[t.String()]
		if !ok {
			item = defCatalog.Items[t.String()]
			item.Quantity = cat.DefaultQuantity
			if !currency.Expressible(item.Price, cat.Denominations) {
				errs = append(errs, errors.NotValidf("snack=%s default price=%s not payable with denominations", t, item.Price))
			}
		}
		self.slots[t] = slot{price: item.Price, quantity: item.Quantity}
	}
	if err := helpers.FoldErrors(errs); err != nil {
		return nil, errors.Annotate(err, "machine config")
	}
	return self, nil
}

// NewDefault is stock machine from machine_config.Default().
func NewDefault() *Machine {
	self, err := New(nil, machine_config.Default())
	if err != nil {
		panic("code error NewDefault: " + err.Error())
	}
	return self
}

// SetTeler nil restores no-op reporting.
func (self *Machine) SetTeler(t tele.Teler) {
	if t == nil {
		t = tele.Noop{}
	}
	self.lk.Lock()
	self.tele = t
	self.lk.Unlock()
}

// InsertMoney adds one coin or bill to transaction credit.
// Nil, zero and not whitelisted amounts are rejected, credit unchanged.
func (self *Machine) InsertMoney(money *currency.Money) error {
	const tag = "machine.insert"

	if money == nil {
		self.lk.Lock()
		self.stat.CoinRejected[reason(ErrMoneyNil)]++
		self.lk.Unlock()
		return errors.Annotate(ErrMoneyNil, tag)
	}

	self.lk.Lock()
	defer self.lk.Unlock()
	if err := self.credit.Add(money, 1); err != nil {
		self.stat.CoinRejected[money.String()]++
		self.Log.Debugf("%s rejected amount=%s", tag, money)
		return errors.Annotatef(err, "%s amount=%s", tag, money)
	}
	self.inTransaction = self.inTransaction.Add(money)
	self.stat.CoinAccepted[money.String()]++
	self.Log.Debugf("%s amount=%s credit=%s", tag, money, self.inTransaction)
	return nil
}

// BuySnack returns change, Zero when credit equals price.
// On error nothing changes, credit stays for another attempt.
func (self *Machine) BuySnack(t SnackType) (*currency.Money, error) {
	const tag = "machine.buy"

	self.lk.Lock()
	change, tx, err := self.locked_buy(t)
	if err != nil {
		self.stat.BuyRejected[reason(err)]++
	}
	teler := self.tele
	self.lk.Unlock()

	if err != nil {
		self.Log.Debugf("%s snack=%s err=%v", tag, t, err)
		return nil, errors.Annotate(err, tag)
	}
	self.Log.Infof("%s snack=%s price=%s paid=%s change=%s", tag, t, tx.Price, tx.Paid, change)
	teler.Transaction(tx)
	return change, nil
}

func (self *Machine) locked_buy(t SnackType) (*currency.Money, *tele.Transaction, error) {
	if self.inTransaction.IsZero() {
		return nil, nil, ErrNoCredit
	}
	if !t.Valid() {
		return nil, nil, errors.Annotatef(ErrSnackTypeInvalid, "type=%d", uint8(t))
	}
	s := &self.slots[t]
	if self.inTransaction.IsLessThan(s.price) {
		return nil, nil, errors.Annotatef(ErrInsufficientFunds, "snack=%s price=%s credit=%s", t, s.price, self.inTransaction)
	}
	if s.quantity == 0 {
		return nil, nil, errors.Annotatef(ErrOutOfStock, "snack=%s", t)
	}
	// compute everything that may fail before first mutation
	change, err := self.inTransaction.Sub(s.price)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	tx := tele.NewTransaction(self.now())
	tx.Snack = t.String()
	tx.Price = s.price
	tx.Paid = self.inTransaction
	tx.Change = change
	tx.Coins = make(map[string]uint, 4)
	_ = self.credit.Iter(func(n *currency.Money, count uint) error {
		if count > 0 {
			tx.Coins[n.String()] = count
		}
		return nil
	})

	self.inside = self.inside.Add(self.inTransaction)
	self.inTransaction = currency.Zero
	self.cashbox.AddFrom(&self.credit)
	self.credit.Clear()
	s.quantity--
	self.stat.Sold[t.String()]++
	return change, tx, nil
}

func (self *Machine) MoneyInside() *currency.Money {
	self.lk.Lock()
	defer self.lk.Unlock()
	return self.inside
}

func (self *Machine) MoneyInTransaction() *currency.Money {
	self.lk.Lock()
	defer self.lk.Unlock()
	return self.inTransaction
}

func (self *Machine) ChewingGums() Snack { return self.mustSnack(ChewingGum) }
func (self *Machine) Chips() Snack       { return self.mustSnack(Chips) }
func (self *Machine) Chocolates() Snack  { return self.mustSnack(Chocolate) }

func (self *Machine) Snack(t SnackType) (Snack, error) {
	if !t.Valid() {
		return Snack{}, errors.Annotatef(ErrSnackTypeInvalid, "type=%d", uint8(t))
	}
	self.lk.Lock()
	defer self.lk.Unlock()
	s := self.slots[t]
	return Snack{Type: t, Price: s.price, Quantity: s.quantity}, nil
}

func (self *Machine) Snacks() []Snack {
	result := make([]Snack, 0, snackTypeCount)
	for _, t := range SnackTypes() {
		result = append(result, self.mustSnack(t))
	}
	return result
}

// Denominations is the accepted whitelist, ascending.
func (self *Machine) Denominations() []*currency.Money {
	self.lk.Lock()
	defer self.lk.Unlock()
	return self.credit.Valid()
}

// TransactionCoins is a copy of coins inserted since last purchase.
func (self *Machine) TransactionCoins() *currency.NominalGroup {
	self.lk.Lock()
	defer self.lk.Unlock()
	return self.credit.Copy()
}

// Cashbox is a copy of coins retained by completed purchases.
func (self *Machine) Cashbox() *currency.NominalGroup {
	self.lk.Lock()
	defer self.lk.Unlock()
	return self.cashbox.Copy()
}

func (self *Machine) Stat() Stat {
	self.lk.Lock()
	defer self.lk.Unlock()
	return self.stat.copy()
}

func (self *Machine) mustSnack(t SnackType) Snack {
	s, err := self.Snack(t)
	if err != nil {
		panic("code error " + err.Error())
	}
	return s
}
