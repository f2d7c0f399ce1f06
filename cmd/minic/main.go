package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"minic/internal/diag"
	"minic/internal/errors"
	"minic/internal/ir"
	"minic/internal/parser"
	"minic/internal/sema"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var emit string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "minic [file]",
		Short: "minic compiles the i64-only subset language to textual IR",
		Args:  cobra.MaximumNArgs(1),
		// run() already writes the single "<file>:<line>:<col>: <message>"
		// diagnostic to stderr itself; cobra's default Error:/usage-block
		// printing would stack a second, differently-shaped report on top
		// of it.
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return run(cmd.OutOrStdout(), path, emit, verbose)
		},
	}

	cmd.Flags().StringVar(&emit, "emit", "flat", `IR form to print: "flat" or "graph"`)
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug tracing")
	return cmd
}

func run(out io.Writer, path, emit string, verbose bool) error {
	diag.Configure(verbose)
	log := diag.Logger("minic.cli")

	if emit != "flat" && emit != "graph" {
		err := fmt.Errorf(`--emit must be "flat" or "graph", got %q`, emit)
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	filename := path
	var source []byte
	var err error
	if path == "-" || path == "" {
		filename = "<stdin>"
		source, err = io.ReadAll(os.Stdin)
	} else {
		source, err = os.ReadFile(path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", filename, err)
		return err
	}

	log.Info("parsing", "file", filename)
	unit, err := parser.Parse(filename, string(source))
	if err != nil {
		reportStderr(err)
		return err
	}

	if errs := sema.Check(unit); len(errs) > 0 {
		for _, e := range errs {
			reportStderr(e)
		}
		return errs[0]
	}

	log.Info("lowering", "emit", emit)
	switch emit {
	case "flat":
		fmt.Fprint(out, ir.PrintFlat(ir.LowerFlat(unit)))
	case "graph":
		fmt.Fprint(out, ir.PrintGraph(ir.LowerGraph(unit)))
	}
	return nil
}

func reportStderr(err error) {
	fmt.Fprintln(os.Stderr, errors.FromError(err).Error())
}
