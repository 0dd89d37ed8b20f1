// Command hdlsym symbolically executes a design and reports assertion
// violations.
//
//	hdlsym [flags] design.yaml
//
// Exit status is 0 when no assertion can be violated, 2 when a violation was
// found and 1 on any error.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	hdl "github.com/speakeasy-api/hdlsym"
	"github.com/speakeasy-api/hdlsym/pkg/hdlfmt"
	"github.com/speakeasy-api/hdlsym/pkg/report"
	"github.com/speakeasy-api/hdlsym/symexec"
)

const (
	exitOK = iota
	exitError
	exitViolation
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type cli struct {
	config   string
	top      string
	format   string
	color    string
	logLevel string
	cycles   int
	timeout  time.Duration
	verbose  bool
	stores   bool
	dump     bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var c cli
	fs := flag.NewFlagSet("hdlsym", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.config, "config", "", "options file (YAML)")
	fs.StringVar(&c.top, "top", "", "top module (default: the design's top)")
	fs.StringVar(&c.format, "format", "text", "report format: text or yaml")
	fs.StringVar(&c.color, "color", "auto", "color text output: auto, always or never")
	fs.StringVar(&c.logLevel, "log-level", "", "override the configured log level")
	fs.IntVar(&c.cycles, "cycles", 0, "override the configured cycle count")
	fs.DurationVar(&c.timeout, "timeout", 0, "abort the run after this long (default: no limit)")
	fs.BoolVar(&c.verbose, "v", false, "list every explored combination")
	fs.BoolVar(&c.stores, "stores", false, "include final stores in YAML output")
	fs.BoolVar(&c.dump, "dump", false, "print the loaded design as Verilog and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: hdlsym [flags] design.yaml\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitError
	}

	if c.format != "text" && c.format != "yaml" {
		fmt.Fprintf(stderr, "hdlsym: unknown format %q\n", c.format)
		return exitError
	}

	code, err := c.execute(ctx, fs.Arg(0), stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "hdlsym: %v\n", err)
		return exitError
	}
	return code
}

func (c *cli) execute(ctx context.Context, path string, stdout, stderr io.Writer) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return exitError, errors.Wrap(err, "open design")
	}
	d, err := hdl.LoadDesign(f)
	f.Close()
	if err != nil {
		return exitError, errors.Wrap(err, path)
	}
	if c.top != "" {
		d.Top = c.top
	}

	if c.dump {
		src, err := hdlfmt.Design(d, hdlfmt.Config{})
		if err != nil {
			return exitError, err
		}
		_, err = io.WriteString(stdout, src)
		return exitOK, err
	}

	opts := symexec.DefaultOptions()
	if c.config != "" {
		if opts, err = symexec.LoadOptionsFile(c.config); err != nil {
			return exitError, err
		}
	}
	if c.logLevel != "" {
		opts.LogLevel = c.logLevel
	}
	if c.cycles > 0 {
		opts.Cycles = c.cycles
	}
	opts.LogOutput = stderr

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	r, err := symexec.ExecuteDesign(ctx, d, opts)
	if err != nil {
		return exitError, err
	}

	switch c.format {
	case "yaml":
		err = report.WriteYAML(stdout, r, c.stores)
	default:
		err = report.WriteText(stdout, r, report.TextOptions{
			Color:   c.useColor(stdout),
			Verbose: c.verbose,
		})
	}
	if err != nil {
		return exitError, err
	}
	if len(r.Violations) > 0 {
		return exitViolation, nil
	}
	return exitOK, nil
}

func (c *cli) useColor(w io.Writer) bool {
	switch c.color {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	return ok && report.ColorEnabled(f)
}
