// Command inspect-paths prints the branch space of a design and the path
// codes of its first combinations.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	hdl "github.com/speakeasy-api/hdlsym"
	"github.com/speakeasy-api/hdlsym/symexec"
)

func main() {
	width := flag.Int("width", 32, "path code width (32 or 128)")
	limit := flag.Uint64("n", 8, "combinations to list")
	offset := flag.Uint64("offset", 0, "first combination to list")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: inspect-paths [flags] design.yaml")
		os.Exit(1)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open design: %v\n", err)
		os.Exit(1)
	}
	d, err := hdl.LoadDesign(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load design: %v\n", err)
		os.Exit(1)
	}

	if err := inspect(os.Stdout, d, *width, *offset, *limit); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func inspect(w io.Writer, d *hdl.Design, width int, offset, limit uint64) error {
	ps := symexec.NewPathSpace(d, width)
	for _, m := range ps.Modules {
		fmt.Fprintf(w, "%-15s decisions=%-3d paths=%s\n", m.Name, m.Decisions, m.Size)
	}
	fmt.Fprintf(w, "total: %s\n", ps.Total)
	for _, name := range ps.Aliased() {
		fmt.Fprintf(w, "aliased: %s exceeds %d bits\n", name, width)
	}

	total, err := ps.Count()
	if err != nil {
		return err
	}
	odo, err := ps.NewOdometer()
	if err != nil {
		return err
	}
	odo.Seek(offset)
	for i := offset; i < total && i-offset < limit; i++ {
		codes := odo.Codes()
		fmt.Fprintf(w, "%3d:", i)
		for _, m := range ps.Modules {
			n := min(max(m.Decisions, 1), width)
			fmt.Fprintf(w, " %s=%s", m.Name, codes[m.Name][width-n:])
		}
		fmt.Fprintln(w)
		odo.Next()
	}
	return nil
}
