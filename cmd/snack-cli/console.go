package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	prompt "github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/temoto/snackmachine/currency"
	"github.com/temoto/snackmachine/internal/machine"
	"github.com/temoto/snackmachine/internal/state"
	"github.com/temoto/snackmachine/log2"
)

const usage = `syntax: one command per line
(main)
- insert AMOUNT   insert coin or bill, e.g. insert 0.25
- buy SNACK       buy chewing_gum|chips|chocolate, prints change
- status          credit, money inside, snacks left
- stat            counters

(meta)
- log=yes         enable debug logging
- log=no          disable debug logging
- help
`

type console struct {
	g   *state.Global
	log *log2.Log
	out io.Writer
}

func newConsole(ctx context.Context, out io.Writer) *console {
	return &console{g: state.GetGlobal(ctx), log: log2.ContextValueLogger(ctx), out: out}
}

func (self *console) exec(line string) {
	if err := self.run(line); err != nil {
		switch {
		case machine.IsInvalidArgument(err), machine.IsInvalidState(err):
			fmt.Fprintf(self.out, "rejected: %v\n", err)
		default:
			self.log.Errorf("%s", errors.ErrorStack(err))
		}
	}
}

func (self *console) run(line string) error {
	words := strings.Fields(line)
	if len(words) == 0 {
		return nil
	}
	m := self.g.Machine
	cmd, args := words[0], words[1:]
	switch cmd {
	case "help", "?":
		fmt.Fprint(self.out, usage)

	case "insert", "i":
		if len(args) == 0 {
			return errors.Errorf("insert requires AMOUNT")
		}
		for _, a := range args {
			money, err := currency.Parse(a)
			if err != nil {
				return err
			}
			if err = m.InsertMoney(money); err != nil {
				return err
			}
		}
		fmt.Fprintf(self.out, "credit %s\n", m.MoneyInTransaction().Format())

	case "buy", "b":
		if len(args) != 1 {
			return errors.Errorf("buy requires one SNACK")
		}
		t, err := machine.ParseSnackType(args[0])
		if err != nil {
			return err
		}
		change, err := m.BuySnack(t)
		if err != nil {
			return err
		}
		fmt.Fprintf(self.out, "dispensed %s change %s\n", t, change.Format())

	case "status", "s":
		fmt.Fprintf(self.out, "credit %s inside %s\n", m.MoneyInTransaction().Format(), m.MoneyInside().Format())
		for _, s := range m.Snacks() {
			fmt.Fprintf(self.out, "- %-12s price %s left %d\n", s.Type, s.Price.Format(), s.Quantity)
		}

	case "stat":
		st := m.Stat()
		fmt.Fprintf(self.out, "cashbox %s\n", m.Cashbox().String())
		fmt.Fprintf(self.out, "sold %s\n", formatCounters(st.Sold))
		fmt.Fprintf(self.out, "coin accepted %s\n", formatCounters(st.CoinAccepted))
		fmt.Fprintf(self.out, "coin rejected %s\n", formatCounters(st.CoinRejected))
		fmt.Fprintf(self.out, "buy rejected %s\n", formatCounters(st.BuyRejected))

	case "log=yes":
		self.log.SetLevel(log2.LDebug)
	case "log=no":
		self.log.SetLevel(log2.LError)

	default:
		return errors.Errorf("unknown command='%s', try help", cmd)
	}
	return nil
}

func (self *console) complete(d prompt.Document) []prompt.Suggest {
	before := d.TextBeforeCursor()
	words := strings.Fields(before)
	if len(words) >= 2 || (len(words) == 1 && strings.HasSuffix(before, " ")) {
		switch words[0] {
		case "insert", "i":
			suggests := make([]prompt.Suggest, 0, 8)
			for _, n := range self.g.Machine.Denominations() {
				suggests = append(suggests, prompt.Suggest{Text: n.String()})
			}
			return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), false)
		case "buy", "b":
			suggests := make([]prompt.Suggest, 0, 3)
			for _, s := range self.g.Machine.Snacks() {
				suggests = append(suggests, prompt.Suggest{Text: s.Type.String(), Description: "price " + s.Price.Format()})
			}
			return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), true)
		}
		return nil
	}
	suggests := []prompt.Suggest{
		{Text: "insert", Description: "insert coin or bill"},
		{Text: "buy", Description: "buy snack, get change"},
		{Text: "status", Description: "credit, money inside, snacks left"},
		{Text: "stat", Description: "counters"},
		{Text: "log=yes", Description: "enable debug logging"},
		{Text: "log=no", Description: "disable debug logging"},
		{Text: "help"},
	}
	return prompt.FilterFuzzy(suggests, d.GetWordBeforeCursor(), true)
}

func formatCounters(m map[string]uint32) string {
	if len(m) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, fmt.Sprintf("%s:%d", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
