package currency

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/shopspring/decimal"
)

var ErrNominalInvalid = errors.New("Nominal is not valid for this group")

// NominalGroup counts money comprised of multiple nominals, like coins or bills.
// 0.25 : 3
// 1    : 1
// 5    : 4
// total: 21.75
type NominalGroup struct {
	values map[string]*nominalCount
}

type nominalCount struct {
	nominal *Money
	count   uint
}

func (self *NominalGroup) Copy() *NominalGroup {
	ng2 := &NominalGroup{
		values: make(map[string]*nominalCount, len(self.values)),
	}
	for k, v := range self.values {
		c := *v
		ng2.values[k] = &c
	}
	return ng2
}

// SetValid resets counts and defines accepted nominals. Zero and nil are skipped.
func (self *NominalGroup) SetValid(valid []*Money) {
	self.values = make(map[string]*nominalCount, len(valid))
	for _, n := range valid {
		if n != nil && !n.IsZero() {
			self.values[n.key()] = &nominalCount{nominal: n}
		}
	}
}

// Valid returns accepted nominals in ascending order.
func (self *NominalGroup) Valid() []*Money {
	result := make([]*Money, 0, len(self.values))
	for _, nc := range self.values {
		result = append(result, nc.nominal)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].IsLessThan(result[j]) })
	return result
}

func (self *NominalGroup) Add(n *Money, count uint) error {
	nc, ok := self.values[n.key()]
	if n == nil || !ok {
		return errors.Annotatef(ErrNominalInvalid, "Add(n=%s, c=%d)", n, count)
	}
	nc.count += count
	return nil
}

func (self *NominalGroup) AddFrom(source *NominalGroup) {
	if self.values == nil {
		self.values = make(map[string]*nominalCount, len(source.values))
	}
	for k, v := range source.values {
		if nc, ok := self.values[k]; ok {
			nc.count += v.count
		} else {
			self.values[k] = &nominalCount{nominal: v.nominal, count: v.count}
		}
	}
}

func (self *NominalGroup) Clear() {
	for _, nc := range self.values {
		nc.count = 0
	}
}

func (self *NominalGroup) Get(n *Money) (uint, error) {
	if nc, ok := self.values[n.key()]; n != nil && ok {
		return nc.count, nil
	}
	return 0, ErrNominalInvalid
}

// Iter visits nominals in ascending order.
func (self *NominalGroup) Iter(f func(nominal *Money, count uint) error) error {
	for _, n := range self.Valid() {
		if err := f(n, self.values[n.key()].count); err != nil {
			return err
		}
	}
	return nil
}

func (self *NominalGroup) Total() *Money {
	sum := decimal.Zero
	for _, nc := range self.values {
		sum = sum.Add(nc.nominal.Decimal().Mul(decimal.NewFromInt(int64(nc.count))))
	}
	return &Money{amount: sum}
}

func (self *NominalGroup) String() string {
	parts := make([]string, 0, len(self.values)+1)
	_ = self.Iter(func(n *Money, count uint) error {
		if count > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", n.String(), count))
		}
		return nil
	})
	parts = append(parts, fmt.Sprintf("total:%s", self.Total().String()))
	return strings.Join(parts, ",")
}

// Below the coin bound, amounts larger than this many units are not searched.
const expressibleScanMax = 1 << 20

// Expressible reports whether amount is a sum of nominals, each used any number of times.
// Amounts too large to verify report false.
func Expressible(amount *Money, nominals []*Money) bool {
	if amount.IsZero() {
		return true
	}
	// Scale everything to integer units of the finest exponent.
	exp := amount.Decimal().Exponent()
	for _, n := range nominals {
		if e := n.Decimal().Exponent(); e < exp {
			exp = e
		}
	}
	units := func(m *Money) *big.Int { return m.Decimal().Shift(-exp).BigInt() }

	coins := make([]*big.Int, 0, len(nominals))
	gcd := new(big.Int)
	for _, n := range nominals {
		if n == nil || n.IsZero() {
			continue
		}
		u := units(n)
		coins = append(coins, u)
		gcd.GCD(nil, nil, gcd, u)
	}
	if len(coins) == 0 {
		return false
	}
	target := units(amount)
	if new(big.Int).Mod(target, gcd).Sign() != 0 {
		return false
	}

	// Reduced by gcd, every amount from (min-1)*(max-1) upward is reachable.
	min, max := new(big.Int), new(big.Int)
	for i, c := range coins {
		c.Quo(c, gcd)
		if i == 0 || c.Cmp(min) < 0 {
			min.Set(c)
		}
		if c.Cmp(max) > 0 {
			max.Set(c)
		}
	}
	target.Quo(target, gcd)
	bound := new(big.Int).Mul(new(big.Int).Sub(min, big.NewInt(1)), new(big.Int).Sub(max, big.NewInt(1)))
	if target.Cmp(min) < 0 {
		return false
	}
	if target.Cmp(bound) >= 0 {
		return true
	}
	rem := new(big.Int)
	for _, c := range coins {
		if rem.Mod(target, c).Sign() == 0 {
			return true
		}
	}
	if !target.IsInt64() || target.Int64() > expressibleScanMax {
		return false
	}

	t := int(target.Int64())
	reach := make([]bool, t+1)
	reach[0] = true
	for i := 1; i <= t; i++ {
		for _, c := range coins {
			if c.IsInt64() && int64(i) >= c.Int64() && reach[i-int(c.Int64())] {
				reach[i] = true
				break
			}
		}
	}
	return reach[t]
}
