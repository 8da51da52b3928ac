package main

import (
	"context"
	"flag"
	"os"

	"github.com/juju/errors"
	"github.com/temoto/snackmachine/helpers/cli"
	"github.com/temoto/snackmachine/internal/state"
	"github.com/temoto/snackmachine/log2"
)

var log = log2.NewStderr(log2.LInfo)

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := cmdline.String("config", "", "HCL config, empty for stock machine")
	journalPath := cmdline.String("journal", "", "append sales as JSON lines, overrides tele.journal")
	debug := cmdline.Bool("debug", false, "")
	_ = cmdline.Parse(os.Args[1:])

	log.SetFlags(log2.LInteractiveFlags)
	if *debug {
		log.SetLevel(log2.LDebug)
	}

	config := new(state.Config)
	if *configPath != "" {
		config = state.MustReadConfig(log, state.NewOsFullReader(), *configPath)
	}
	overrideConfig(config, *journalPath, *debug)
	g, err := state.NewGlobal(log, config)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	defer g.Close()
	ctx := state.ContextWithGlobal(context.Background(), g)

	con := newConsole(ctx, os.Stdout)
	con.exec("status")
	cli.MainLoop("snack-cli", con.exec, con.complete)
}

// Command line flags win over config file.
func overrideConfig(c *state.Config, journal string, debug bool) {
	if journal != "" {
		c.Tele.Journal = journal
	}
	if debug {
		c.Log.Level = "debug"
	}
}
