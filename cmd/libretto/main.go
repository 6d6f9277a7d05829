// Command libretto is the CLI entry point: it dispatches to one of a
// small set of subcommands (install, update, require) driving
// internal/planner's pipeline. Grounded on the teacher's main.go (the
// command interface + flag.FlagSet-per-subcommand dispatch loop) and
// source_manager.go's UseDefaultSignalHandling (a single
// signal.Notify installed once at the entry point, propagated via a
// cancellable context rather than the teacher's bespoke quit-channel,
// since every downstream call here already threads context.Context).
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
)

// command is the shape every subcommand implements, mirroring the
// teacher's command interface.
type command interface {
	Name() string
	Args() string
	ShortHelp() string
	LongHelp() string
	Register(*flag.FlagSet)
	Run(ctx context.Context, args []string) error
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	commands := []command{
		&installCommand{log: log},
		&updateCommand{log: log},
		&requireCommand{log: log},
	}

	usage := func() {
		fmt.Fprintln(os.Stderr, "Usage: libretto <command>")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr)
		w := tabwriter.NewWriter(os.Stderr, 0, 4, 2, ' ', 0)
		for _, c := range commands {
			fmt.Fprintf(w, "\t%s\t%s\n", c.Name(), c.ShortHelp())
		}
		w.Flush()
		fmt.Fprintln(os.Stderr)
	}

	if len(args) == 0 || strings.Contains(strings.ToLower(args[0]), "help") || strings.ToLower(args[0]) == "-h" {
		usage()
		return 1
	}

	for _, c := range commands {
		if c.Name() != args[0] {
			continue
		}

		fs := flag.NewFlagSet(c.Name(), flag.ExitOnError)
		verbose := fs.Bool("v", false, "enable verbose logging")
		c.Register(fs)
		resetUsage(fs, c.Name(), c.Args(), c.LongHelp())

		if err := fs.Parse(args[1:]); err != nil {
			fs.Usage()
			return 1
		}
		if *verbose {
			log.SetLevel(logrus.DebugLevel)
		}

		ctx, cancel := context.WithCancel(context.Background())
		sigch := make(chan os.Signal, 1)
		signal.Notify(sigch, os.Interrupt)
		cancelled := make(chan struct{})
		go func() {
			select {
			case <-sigch:
				cancel()
				close(cancelled)
			case <-ctx.Done():
			}
		}()

		err := c.Run(ctx, fs.Args())
		signal.Stop(sigch)

		select {
		case <-cancelled:
			return 130
		default:
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(os.Stderr, "%s: no such command\n", args[0])
	usage()
	return 1
}

func resetUsage(fs *flag.FlagSet, name, args, longHelp string) {
	var flagBlock bytes.Buffer
	flagWriter := tabwriter.NewWriter(&flagBlock, 0, 4, 2, ' ', 0)
	fs.VisitAll(func(f *flag.Flag) {
		defValue := f.DefValue
		if defValue == "" {
			defValue = "<none>"
		}
		fmt.Fprintf(flagWriter, "\t-%s\t%s (default: %s)\n", f.Name, f.Usage, defValue)
	})
	flagWriter.Flush()
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: libretto %s %s\n", name, args)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, strings.TrimSpace(longHelp))
		fmt.Fprintln(os.Stderr)
		if flagBlock.Len() > 0 {
			fmt.Fprintln(os.Stderr, "Flags:")
			fmt.Fprint(os.Stderr, flagBlock.String())
		}
	}
}
