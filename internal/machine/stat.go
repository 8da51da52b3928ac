package machine

// Stat counters are keyed by nominal, snack name or reject reason.
type Stat struct {
	CoinAccepted map[string]uint32
	CoinRejected map[string]uint32
	Sold         map[string]uint32
	BuyRejected  map[string]uint32
}

func (self *Stat) reset() {
	self.CoinAccepted = make(map[string]uint32, 8)
	self.CoinRejected = make(map[string]uint32, 8)
	self.Sold = make(map[string]uint32, snackTypeCount)
	self.BuyRejected = make(map[string]uint32, 8)
}

func (self *Stat) copy() Stat {
	cp := func(m map[string]uint32) map[string]uint32 {
		r := make(map[string]uint32, len(m))
		for k, v := range m {
			r[k] = v
		}
		return r
	}
	return Stat{
		CoinAccepted: cp(self.CoinAccepted),
		CoinRejected: cp(self.CoinRejected),
		Sold:         cp(self.Sold),
		BuyRejected:  cp(self.BuyRejected),
	}
}
