// Command avrasm assembles AVR source into Intel HEX or raw images.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/Urethramancer/avr/arch/avr"
	"github.com/Urethramancer/avr/compiler"
	"github.com/Urethramancer/avr/diag"
	"github.com/Urethramancer/avr/objcode"
	"github.com/Urethramancer/avr/output"
	"github.com/Urethramancer/avr/resource"
	"github.com/grimdork/climate/arg"
)

const groupDiagnostics = "Diagnostics"

func main() {
	opt := arg.New("avrasm")
	opt.SetDefaultHelp(true)
	opt.SetOption(arg.GroupDefault, "d", "device", "Target device: "+strings.Join(avr.Names(), ", ")+".", avr.Default().Name(), false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "o", "output", "Output path without extension. Defaults to the source path.", "", false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "f", "format", "Output format.", "hex", false, arg.VarString, []any{"hex", "raw"})
	opt.SetOption(arg.GroupDefault, "s", "symbols", "Print the symbol table.", false, false, arg.VarBool, nil)
	opt.SetOption(groupDiagnostics, "m", "max-errors", "Stop after this many errors, 0 for no limit.", 100, false, arg.VarInt, nil)
	opt.SetOption(groupDiagnostics, "R", "no-range-check", "Only warn when a segment outgrows the device.", false, false, arg.VarBool, nil)
	opt.SetOption(groupDiagnostics, "W", "no-inout-hint", "Do not suggest in/out for lds/sts on I/O addresses.", false, false, arg.VarBool, nil)
	opt.SetOption(groupDiagnostics, "v", "verbose", "Trace the compiler phases on stderr.", false, false, arg.VarBool, nil)
	opt.SetPositional("SOURCE", "Assembly source file.", "", true, arg.VarString)

	err := opt.Parse(os.Args)
	if err != nil {
		if err == arg.ErrNoArgs {
			opt.PrintHelp()
			return
		}
		fmt.Fprintf(os.Stderr, "Error parsing arguments: %v\n", err)
		os.Exit(1)
	}
	if opt.GetBool("help") {
		opt.PrintHelp()
		return
	}

	os.Exit(run(opt))
}

func run(opt *arg.Options) int {
	dev, err := avr.Lookup(opt.GetString("device"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var format output.Format = output.IntelHex{}
	if opt.GetString("format") == "raw" {
		format = output.Raw{}
	}

	settings := compiler.DefaultSettings()
	settings.MaxErrors = opt.GetInt("max-errors")
	settings.FailOnAddressOutOfRange = !opt.GetBool("no-range-check")
	settings.WarnIfInOutCanBeUsed = !opt.GetBool("no-inout-hint")

	log := slog.New(slog.DiscardHandler)
	if opt.GetBool("verbose") {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	source := opt.GetPosString("SOURCE")
	dir, name := filepath.Split(source)
	if dir == "" {
		dir = "."
	}
	factory := resource.Dir(dir)
	root := compiler.NewUnit(factory.Open(name))

	c := compiler.New(dev, compiler.WithLogger(log)).NewCompilation(root, objcode.NewWriter(), settings, factory)
	ok, err := c.Compile()
	if err != nil {
		diag.Render(os.Stderr, c.Diagnostics())
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	files := &output.Files{Base: outputBase(source, opt.GetString("output")), Format: format}
	if ok {
		ok, err = c.Finish(files)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	diag.Render(os.Stderr, c.Diagnostics())

	if opt.GetBool("symbols") {
		printSymbols(c)
	}
	if !ok {
		return 1
	}
	for _, f := range files.Written {
		log.Info("wrote", "file", f)
	}
	return 0
}

func outputBase(source, out string) string {
	if out != "" {
		return out
	}
	return strings.TrimSuffix(source, filepath.Ext(source))
}

func printSymbols(c *compiler.Compilation) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tVALUE\tUNIT\tUSED")
	for _, s := range c.Symbols() {
		value := "-"
		if v, ok := s.Value(); ok {
			value = fmt.Sprintf("%#x", v)
		}
		unit := ""
		if s.Unit != nil {
			unit = s.Unit.Name()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", s.Name, s.Kind, value, unit, s.Referenced)
	}
	w.Flush()
}
