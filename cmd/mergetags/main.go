// Command mergetags prints the merge-tag variables found in exported
// template HTML.
//
//	mergetags < welcome.html
//	mergetags -file welcome.html -indent
//
// The output is a JSON array of variable descriptors, ready to be used as
// the "variables" of a create or update request.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sakif/template-studio/internal/mergetag"
)

func main() {
	file := flag.String("file", "", "read HTML from this file instead of stdin")
	indent := flag.Bool("indent", false, "pretty-print the JSON output")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(os.Stdin, os.Stdout, *file, *indent); err != nil {
		logger.Error("mergetags failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(stdin io.Reader, out io.Writer, file string, indent bool) error {
	in := stdin
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		in = f
	}

	html, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	enc := json.NewEncoder(out)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(mergetag.Extract(string(html))); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
