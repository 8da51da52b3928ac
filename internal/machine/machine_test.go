package machine

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/snackmachine/currency"
	machine_config "github.com/temoto/snackmachine/internal/machine/config"
	"github.com/temoto/snackmachine/internal/tele"
	"github.com/temoto/snackmachine/log2"
)

type mockTeler struct {
	sync.Mutex
	txs    []*tele.Transaction
	closed bool
}

func (self *mockTeler) Transaction(t *tele.Transaction) {
	self.Lock()
	self.txs = append(self.txs, t)
	self.Unlock()
}

func (self *mockTeler) Error(error) {}

func (self *mockTeler) Close() error { self.closed = true; return nil }

func newTestMachine(t testing.TB) *Machine {
	m, err := New(log2.NewTest(t, log2.LDebug), machine_config.Default())
	require.NoError(t, err)
	return m
}

func assertMoney(t testing.TB, expect string, actual *currency.Money) {
	t.Helper()
	if !currency.MustParse(expect).Equal(actual) {
		t.Errorf("expected=%s actual=%s", expect, actual)
	}
}

func mustInsert(t testing.TB, m *Machine, ms ...*currency.Money) {
	t.Helper()
	for _, money := range ms {
		require.NoError(t, m.InsertMoney(money))
	}
}

func TestNewMachine(t *testing.T) {
	t.Parallel()

	m := NewDefault()
	assert.True(t, m.MoneyInside().Equal(currency.Zero))
	assert.True(t, m.MoneyInTransaction().Equal(currency.Zero))
	assert.Equal(t, uint32(machine_config.DefaultQuantity), m.ChewingGums().Quantity)
	assert.Equal(t, uint32(machine_config.DefaultQuantity), m.Chips().Quantity)
	assert.Equal(t, uint32(machine_config.DefaultQuantity), m.Chocolates().Quantity)
	assertMoney(t, "0.5", m.ChewingGums().Price)
	assertMoney(t, "1", m.Chips().Price)
	assertMoney(t, "2", m.Chocolates().Price)
	assert.Len(t, m.Snacks(), 3)
	assert.Len(t, m.Denominations(), 5)
	assert.True(t, m.Cashbox().Total().IsZero())
}

func TestInsertMoneyAccumulates(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t)
	mustInsert(t, m, currency.QuarterDinar, currency.HalfDinar, currency.Dinar)
	assert.True(t, m.MoneyInside().Equal(currency.Zero))
	assertMoney(t, "1.75", m.MoneyInTransaction())

	m2 := newTestMachine(t)
	mustInsert(t, m2, currency.QuarterDinar, currency.QuarterDinar, currency.Dinar)
	assertMoney(t, "1.5", m2.MoneyInTransaction())
	assert.Equal(t, "0.25:2,1:1,total:1.5", m2.TransactionCoins().String())
}

func TestInsertMoneyAccepted(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"0.25", "0.5", "1.0", "5.0", "10.0", "0.50"} {
		s := s
		t.Run(s, func(t *testing.T) {
			m := newTestMachine(t)
			require.NoError(t, m.InsertMoney(currency.MustParse(s)))
			assertMoney(t, s, m.MoneyInTransaction())
		})
	}
}

func TestInsertMoneyRejected(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"0.0", "0.01", "0.05", "0.10", "20.0", "50.0"} {
		s := s
		t.Run(s, func(t *testing.T) {
			m := newTestMachine(t)
			mustInsert(t, m, currency.Dinar)
			err := m.InsertMoney(currency.MustParse(s))
			require.Error(t, err)
			assert.True(t, IsInvalidArgument(err), "err=%v", err)
			assert.False(t, IsInvalidState(err))
			assert.Equal(t, currency.ErrNominalInvalid, errors.Cause(err))
			assertMoney(t, "1", m.MoneyInTransaction())
			assert.Equal(t, uint32(1), m.Stat().CoinRejected[currency.MustParse(s).String()])
		})
	}
	t.Run("nil", func(t *testing.T) {
		m := newTestMachine(t)
		err := m.InsertMoney(nil)
		require.Error(t, err)
		assert.Equal(t, ErrMoneyNil, errors.Cause(err))
		assert.True(t, IsInvalidArgument(err))
		assert.True(t, m.MoneyInTransaction().IsZero())
		assert.Equal(t, uint32(1), m.Stat().CoinRejected["nil"])
	})
}

func TestBuyWithoutMoney(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t)
	_, err := m.BuySnack(ChewingGum)
	require.Error(t, err)
	assert.Equal(t, ErrNoCredit, errors.Cause(err))
	assert.True(t, IsInvalidState(err))
	assert.Contains(t, err.Error(), "insert money first")
	assert.Equal(t, uint32(machine_config.DefaultQuantity), m.ChewingGums().Quantity)
}

func TestBuyExactMoney(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t)
	mustInsert(t, m, currency.QuarterDinar, currency.QuarterDinar)
	change, err := m.BuySnack(ChewingGum)
	require.NoError(t, err)
	assert.True(t, change.Equal(currency.Zero))
	assert.True(t, m.MoneyInTransaction().Equal(currency.Zero))
	assert.True(t, m.MoneyInside().Equal(currency.HalfDinar))
	assert.Equal(t, uint32(machine_config.DefaultQuantity-1), m.ChewingGums().Quantity)
	assert.Equal(t, "0.25:2,total:0.5", m.Cashbox().String())
	assert.True(t, m.TransactionCoins().Total().IsZero())

	m2 := newTestMachine(t)
	mustInsert(t, m2, currency.HalfDinar)
	change, err = m2.BuySnack(ChewingGum)
	require.NoError(t, err)
	assert.True(t, change.IsZero())
}

func TestBuyDecreasesEachSnack(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t)
	mustInsert(t, m, currency.QuarterDinar, currency.QuarterDinar)
	_, err := m.BuySnack(ChewingGum)
	require.NoError(t, err)
	mustInsert(t, m, currency.HalfDinar, currency.HalfDinar)
	_, err = m.BuySnack(Chips)
	require.NoError(t, err)
	mustInsert(t, m, currency.Dinar, currency.Dinar)
	_, err = m.BuySnack(Chocolate)
	require.NoError(t, err)

	assert.Equal(t, uint32(machine_config.DefaultQuantity-1), m.ChewingGums().Quantity)
	assert.Equal(t, uint32(machine_config.DefaultQuantity-1), m.Chips().Quantity)
	assert.Equal(t, uint32(machine_config.DefaultQuantity-1), m.Chocolates().Quantity)
	assertMoney(t, "3.5", m.MoneyInside())
	assertMoney(t, "3.5", m.Cashbox().Total())
	assert.Equal(t, map[string]uint32{"chewing_gum": 1, "chips": 1, "chocolate": 1}, m.Stat().Sold)
}

func TestBuyChange(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t)
	mustInsert(t, m, currency.Dinar)
	change, err := m.BuySnack(ChewingGum)
	require.NoError(t, err)
	assert.True(t, change.Equal(currency.HalfDinar))
	assertMoney(t, "1", m.MoneyInside())

	mustInsert(t, m, currency.TenDinar, currency.QuarterDinar)
	change, err = m.BuySnack(Chocolate)
	require.NoError(t, err)
	assertMoney(t, "8.25", change)
}

func TestBuyInsufficientFunds(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t)
	mustInsert(t, m, currency.QuarterDinar)
	_, err := m.BuySnack(ChewingGum)
	require.Error(t, err)
	assert.Equal(t, ErrInsufficientFunds, errors.Cause(err))
	assert.True(t, IsInvalidState(err))
	assertMoney(t, "0.25", m.MoneyInTransaction())
	assert.True(t, m.MoneyInside().IsZero())
	assert.Equal(t, uint32(machine_config.DefaultQuantity), m.ChewingGums().Quantity)
	assert.Equal(t, uint32(1), m.Stat().BuyRejected["insufficient_funds"])

	// credit is kept, top up and retry
	mustInsert(t, m, currency.QuarterDinar)
	change, err := m.BuySnack(ChewingGum)
	require.NoError(t, err)
	assert.True(t, change.IsZero())
}

func TestBuyOutOfStock(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t)
	bought := 0
	for m.ChewingGums().Quantity > 0 {
		mustInsert(t, m, currency.QuarterDinar, currency.QuarterDinar)
		_, err := m.BuySnack(ChewingGum)
		require.NoError(t, err)
		bought++
	}
	assert.Equal(t, machine_config.DefaultQuantity, bought)

	mustInsert(t, m, currency.QuarterDinar, currency.QuarterDinar)
	_, err := m.BuySnack(ChewingGum)
	require.Error(t, err)
	assert.Equal(t, ErrOutOfStock, errors.Cause(err))
	assert.True(t, IsInvalidState(err))
	assert.Equal(t, uint32(0), m.ChewingGums().Quantity)
	assertMoney(t, "0.5", m.MoneyInTransaction())
	assertMoney(t, fmt.Sprintf("%d", bought/2), m.MoneyInside())

	// other slots still sell
	_, err = m.BuySnack(Chips)
	require.Error(t, err)
	assert.Equal(t, ErrInsufficientFunds, errors.Cause(err))
	mustInsert(t, m, currency.HalfDinar)
	_, err = m.BuySnack(Chips)
	require.NoError(t, err)
}

func TestBuyInvalidType(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t)
	mustInsert(t, m, currency.Dinar)
	for _, st := range []SnackType{snackTypeInvalid, snackTypeCount, SnackType(200)} {
		_, err := m.BuySnack(st)
		require.Error(t, err)
		assert.Equal(t, ErrSnackTypeInvalid, errors.Cause(err))
		assert.True(t, IsInvalidArgument(err))
	}
	assertMoney(t, "1", m.MoneyInTransaction())
	_, err := m.Snack(SnackType(200))
	assert.Equal(t, ErrSnackTypeInvalid, errors.Cause(err))
}

func TestBuyReportsTransaction(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t)
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	mt := &mockTeler{}
	m.SetTeler(mt)

	mustInsert(t, m, currency.FiveDinar)
	_, err := m.BuySnack(Chips)
	require.NoError(t, err)
	_, err = m.BuySnack(Chips)
	require.Error(t, err)

	require.Len(t, mt.txs, 1)
	tx := mt.txs[0]
	assert.Equal(t, "chips", tx.Snack)
	assert.True(t, now.Equal(tx.Time))
	assertMoney(t, "5", tx.Paid)
	assertMoney(t, "1", tx.Price)
	assertMoney(t, "4", tx.Change)
	assert.True(t, tx.Price.Add(tx.Change).Equal(tx.Paid))
	assert.Equal(t, map[string]uint{"5": 1}, tx.Coins)

	m.SetTeler(nil)
	mustInsert(t, m, currency.Dinar)
	_, err = m.BuySnack(Chips)
	require.NoError(t, err)
	assert.Len(t, mt.txs, 1)
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	type Case struct {
		name      string
		config    machine_config.Config
		check     func(testing.TB, *Machine)
		expectErr string
	}
	cases := []Case{
		{"empty-uses-defaults", machine_config.Config{}, func(t testing.TB, m *Machine) {
			assert.Equal(t, uint32(machine_config.DefaultQuantity), m.Chips().Quantity)
			assertMoney(t, "2", m.Chocolates().Price)
			assert.Len(t, m.Denominations(), 5)
		}, ""},
		{"override", machine_config.Config{
			DefaultQuantity: 3,
			Snacks: []machine_config.Snack{
				{Name: "chips", Price: "1.25", Quantity: 1},
			},
		}, func(t testing.TB, m *Machine) {
			assert.Equal(t, uint32(1), m.Chips().Quantity)
			assertMoney(t, "1.25", m.Chips().Price)
			assert.Equal(t, uint32(3), m.ChewingGums().Quantity)
			assertMoney(t, "0.5", m.ChewingGums().Price)
		}, ""},
		{"unknown-snack", machine_config.Config{
			Snacks: []machine_config.Snack{{Name: "soda", Price: "1"}},
		}, nil, "snack=soda"},
		{"default-price-not-payable", machine_config.Config{
			Denominations: []string{"1", "5"},
		}, nil, "snack=chewing_gum default price=0.5 not payable"},
		{"bad-price", machine_config.Config{
			Snacks: []machine_config.Snack{{Name: "chips", Price: "-1"}},
		}, nil, "snack=chips price"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			m, err := New(log2.NewTest(t, log2.LDebug), c.config)
			if c.expectErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), c.expectErr)
				return
			}
			require.NoError(t, err)
			if c.check != nil {
				c.check(t, m)
			}
		})
	}
}

func TestConcurrentBuy(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t)
	m.Log = nil
	const workers = 8
	wg := sync.WaitGroup{}
	var mu sync.Mutex
	sold := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if err := m.InsertMoney(currency.HalfDinar); err != nil {
					t.Error(err)
					return
				}
				if _, err := m.BuySnack(ChewingGum); err == nil {
					mu.Lock()
					sold++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, machine_config.DefaultQuantity, sold)
	assert.Equal(t, uint32(0), m.ChewingGums().Quantity)
	total := m.MoneyInside().Add(m.MoneyInTransaction())
	assertMoney(t, fmt.Sprintf("%d", workers*20/2), total)
	assert.True(t, m.Cashbox().Total().Equal(m.MoneyInside()))
}
