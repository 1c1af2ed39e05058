// Command perfreport renders a class performance report from a JSON record
// snapshot as terminal tables.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "perfreport:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("perfreport", flag.ContinueOnError)
	fs.SetOutput(out)
	scheme := fs.String("scheme", "", "preset grading scheme (standard, plus, letter), replacing any custom bands in the snapshot")
	threshold := fs.Float64("pass-threshold", 0, "pass threshold override in percent")
	boundary := fs.String("pass-boundary", "", "INCLUSIVE or EXCLUSIVE")
	subjects := fs.Bool("subjects", true, "print per-subject statistics")
	attendance := fs.Bool("attendance", true, "print attendance per student when the snapshot has records")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: perfreport [flags] <snapshot.json>")
	}

	file, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer file.Close()

	snap, err := decodeSnapshot(file)
	if err != nil {
		return err
	}
	if *scheme != "" {
		snap.Policy.Scheme = *scheme
		snap.Policy.Bands = nil
	}
	if *threshold != 0 {
		snap.Policy.PassThreshold = *threshold
	}
	if *boundary != "" {
		snap.Policy.PassBoundary = *boundary
	}

	opts, err := snap.options(time.Now().UTC())
	if err != nil {
		return err
	}
	return render(out, snap, opts, *subjects, *attendance)
}
