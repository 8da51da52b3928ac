package state

import (
	"context"

	"github.com/juju/errors"
	"github.com/temoto/snackmachine/internal/machine"
	"github.com/temoto/snackmachine/internal/tele"
	"github.com/temoto/snackmachine/log2"
)

type contextKey struct{}

// Global is everything a running snack machine process owns.
type Global struct {
	Config  *Config
	Log     *log2.Log
	Machine *machine.Machine
	Tele    tele.Teler
}

func NewGlobal(log *log2.Log, c *Config) (*Global, error) {
	if c.Log.Level != "" {
		level, err := log2.ParseLevel(c.Log.Level)
		if err != nil {
			return nil, errors.Annotate(err, "config log")
		}
		log.SetLevel(level)
	}

	m, err := machine.New(log, c.Machine)
	if err != nil {
		return nil, err
	}

	g := &Global{
		Config:  c,
		Log:     log,
		Machine: m,
		Tele:    tele.Noop{},
	}
	if c.Tele.Journal != "" {
		// journal gets a clone before SetErrorFunc, so its own errors don't recurse
		j, err := tele.OpenJournal(log.Clone(log2.LError), c.Tele.Journal)
		if err != nil {
			return nil, errors.Annotate(err, "config tele")
		}
		g.Tele = j
	}
	m.SetTeler(g.Tele)
	log.SetErrorFunc(g.Tele.Error)
	log.Debugf("state init complete snacks=%v journal='%s'", m.Snacks(), c.Tele.Journal)
	return g, nil
}

func (g *Global) Close() error {
	g.Log.SetErrorFunc(nil)
	return g.Tele.Close()
}

func ContextWithGlobal(ctx context.Context, g *Global) context.Context {
	ctx = log2.ContextWithLog(ctx, g.Log)
	return context.WithValue(ctx, contextKey{}, g)
}

func GetGlobal(ctx context.Context) *Global {
	if g, ok := ctx.Value(contextKey{}).(*Global); ok {
		return g
	}
	panic("code error context has no state.Global")
}
