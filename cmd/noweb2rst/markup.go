package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/dgallion1/noweb2rst/internal/markup"
	"github.com/spf13/cobra"
)

var markupCmd = &cobra.Command{
	Use:   "markup [file]",
	Short: "Convert noweb source into the tagged directive stream",
	Long: `Runs only the markup stage: reads noweb source (stdin when no file is
given) and prints one directive per line. Pipe the result back into
noweb2rst, or inspect it when a translation looks wrong.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMarkup,
}

func runMarkup(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	name := ""
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
		name = args[0]
	}

	bw := bufio.NewWriter(cmd.OutOrStdout())
	if err := markup.Markup(in, bw, name); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
