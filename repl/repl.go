// Package repl SPDX-License-Identifier: Apache-2.0
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"axc/internal/diag"
	"axc/internal/driver"
)

const (
	PROMPT       = ">> "
	CONTINUATION = ".. "
)

const replFile = "<repl>"

// Start reads snippets from in, one per blank-line-terminated block, and
// writes the lowered loop program or the diagnostics of each to out
func Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	var buf strings.Builder

	fmt.Fprint(out, PROMPT)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) != "" {
			buf.WriteString(line)
			buf.WriteByte('\n')
			fmt.Fprint(out, CONTINUATION)
			continue
		}
		if buf.Len() > 0 {
			Eval(out, buf.String())
			buf.Reset()
		}
		fmt.Fprint(out, PROMPT)
	}
	if buf.Len() > 0 {
		Eval(out, buf.String())
	}
}

// Eval compiles one snippet and prints the result
func Eval(out io.Writer, src string) {
	r := driver.Compile(context.Background(), replFile, src, driver.Options{Workers: 1})
	if len(r.Diagnostics) > 0 {
		fmt.Fprint(out, diag.NewErrorReporter(replFile, src).FormatAll(r.Diagnostics))
	}
	if r.HasErrors() {
		fmt.Fprintln(out, color.RedString("snippet not lowered"))
		return
	}
	fmt.Fprint(out, r.LoopSource())
}
