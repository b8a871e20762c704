// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"axc/internal/diag"
	"axc/internal/driver"
)

func main() {
	emit := flag.String("emit", "loop", "output to print on success: loop or df")
	optimize := flag.Bool("O", false, "run the dataflow optimization pipeline before lowering")
	workers := flag.Int("j", 0, "functions lowered in parallel (0 = GOMAXPROCS)")
	verbosity := flag.Int("v", 0, "log verbosity")
	noColor := flag.Bool("no-color", false, "disable colored output")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "Usage: axc [flags] <file.dfg>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	if *emit != "loop" && *emit != "df" {
		fmt.Fprintf(os.Stderr, "unknown -emit value %q\n", *emit)
		os.Exit(1)
	}
	if *noColor {
		color.NoColor = true
	}
	commonlog.Configure(*verbosity, nil)

	startTime := time.Now()
	path := flag.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		os.Exit(1)
	}

	result := driver.Compile(context.Background(), path, string(source), driver.Options{
		Optimize: *optimize,
		Workers:  *workers,
	})

	reporter := diag.NewErrorReporter(path, string(source))
	fmt.Print(reporter.FormatAll(result.Diagnostics))

	formattedDuration := formatDuration(time.Since(startTime))

	if result.HasErrors() {
		color.Red("Compilation failed after %s", formattedDuration)
		os.Exit(1)
	}

	switch *emit {
	case "df":
		fmt.Print(result.DataflowSource())
	default:
		fmt.Print(result.LoopSource())
	}
	color.Green("Successfully compiled %s in %s", path, formattedDuration)
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
