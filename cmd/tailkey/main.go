// Command tailkey converts between instants and descending tail keys.
//
//	tailkey encode 2024-01-01T00:00:00Z
//	tailkey decode 2516982335999999999
//	tailkey now
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jonny/logtail/internal/domain/model"
	"github.com/jonny/logtail/pkg/version"
)

var errUsage = errors.New("usage: tailkey [-v] encode <RFC3339> | decode <key> | now | version")

func main() {
	if err := run(os.Args[1:], os.Stdout, model.SystemClock{}); err != nil {
		fmt.Fprintln(os.Stderr, "tailkey:", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer, clock model.Clock) error {
	fs := flag.NewFlagSet("tailkey", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	verbose := fs.Bool("v", false, "print the key, instant and tick count")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return errUsage
	}

	var (
		key model.TailKey
		err error
	)
	switch rest[0] {
	case "encode":
		if len(rest) != 2 {
			return errUsage
		}
		var at time.Time
		at, err = time.Parse(time.RFC3339Nano, rest[1])
		if err != nil {
			return fmt.Errorf("parse instant: %w", err)
		}
		key, err = model.NewTailKey(at)
	case "decode":
		if len(rest) != 2 {
			return errUsage
		}
		key, err = model.ParseTailKey(rest[1])
		if err == nil && !*verbose {
			_, err = fmt.Fprintln(out, key.Time().Format(time.RFC3339Nano))
			return err
		}
	case "now":
		key, err = model.NowTailKey(clock)
	case "version":
		_, err = fmt.Fprintln(out, version.String())
		return err
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, rest[0])
	}
	if err != nil {
		return err
	}

	if *verbose {
		_, err = fmt.Fprintf(out, "%s\t%s\t%d\n", key, key.Time().Format(time.RFC3339Nano), key.Ticks())
		return err
	}
	_, err = fmt.Fprintln(out, key)
	return err
}
