package machine_config

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/temoto/snackmachine/currency"
	"github.com/temoto/snackmachine/helpers"
)

const DefaultQuantity = 10

// Amounts are strings so config values never pass through float64.
type Config struct {
	DefaultQuantity int      `hcl:"default_quantity"`
	Denominations   []string `hcl:"denominations"`
	Snacks          []Snack  `hcl:"snack"`
}

type Snack struct {
	Name  string `hcl:"name,key"`
	Price string `hcl:"price"`
	// 0 means DefaultQuantity
	Quantity int `hcl:"quantity"`
}

func (self *Snack) String() string {
	return fmt.Sprintf("snack.%s price=%s quantity=%d", self.Name, self.Price, self.Quantity)
}

// Default is the stock machine: coins 0.25..10, gum 0.5, chips 1, chocolate 2.
func Default() Config {
	return Config{
		DefaultQuantity: DefaultQuantity,
		Denominations:   []string{"0.25", "0.5", "1", "5", "10"},
		Snacks: []Snack{
			{Name: "chewing_gum", Price: "0.5"},
			{Name: "chips", Price: "1"},
			{Name: "chocolate", Price: "2"},
		},
	}
}

// Catalog is validated Config with parsed amounts.
type Catalog struct {
	DefaultQuantity uint32
	Denominations   []*currency.Money
	Items           map[string]Item
}

type Item struct {
	Price    *currency.Money
	Quantity uint32
}

// Parse validates c and reports all problems at once.
// Empty DefaultQuantity and Denominations take values from Default().
func (c *Config) Parse() (*Catalog, error) {
	def := Default()
	errs := make([]error, 0)

	cat := &Catalog{Items: make(map[string]Item, len(c.Snacks))}
	switch {
	case c.DefaultQuantity < 0:
		errs = append(errs, errors.NotValidf("default_quantity=%d", c.DefaultQuantity))
	case c.DefaultQuantity == 0:
		cat.DefaultQuantity = uint32(def.DefaultQuantity)
	default:
		cat.DefaultQuantity = uint32(c.DefaultQuantity)
	}

	denoms := c.Denominations
	if len(denoms) == 0 {
		denoms = def.Denominations
	}
	seen := make(map[string]struct{}, len(denoms))
	for _, s := range denoms {
		m, err := currency.Parse(s)
		if err != nil {
			errs = append(errs, errors.Annotatef(err, "denomination=%s", s))
			continue
		}
		if m.IsZero() {
			errs = append(errs, errors.NotValidf("denomination=%s zero", s))
			continue
		}
		if _, ok := seen[m.String()]; ok {
			errs = append(errs, errors.Errorf("denomination=%s duplicate", s))
			continue
		}
		seen[m.String()] = struct{}{}
		cat.Denominations = append(cat.Denominations, m)
	}

	for i := range c.Snacks {
		sc := &c.Snacks[i]
		if sc.Name == "" {
			errs = append(errs, errors.Errorf("snack=(empty) is invalid"))
			continue
		}
		if _, ok := cat.Items[sc.Name]; ok {
			errs = append(errs, errors.Errorf("snack=%s already registered", sc.Name))
			continue
		}
		price, err := currency.Parse(sc.Price)
		if err != nil {
			errs = append(errs, errors.Annotatef(err, "snack=%s price", sc.Name))
			continue
		}
		if price.IsZero() {
			errs = append(errs, errors.NotValidf("snack=%s price=%s", sc.Name, sc.Price))
			continue
		}
		if len(cat.Denominations) != 0 && !currency.Expressible(price, cat.Denominations) {
			errs = append(errs, errors.NotValidf("snack=%s price=%s not payable with denominations", sc.Name, sc.Price))
			continue
		}
		item := Item{Price: price, Quantity: cat.DefaultQuantity}
		switch {
		case sc.Quantity < 0:
			errs = append(errs, errors.NotValidf("snack=%s quantity=%d", sc.Name, sc.Quantity))
			continue
		case sc.Quantity > 0:
			item.Quantity = uint32(sc.Quantity)
		}
		cat.Items[sc.Name] = item
	}

	if err := helpers.FoldErrors(errs); err != nil {
		return nil, err
	}
	return cat, nil
}
