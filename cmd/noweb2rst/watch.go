package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dgallion1/noweb2rst/internal/watch"
	"github.com/spf13/cobra"
)

var watchOutput string

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Retranslate a file every time it changes",
	Long: `Translates <file> once, then again after every save, until interrupted.
Output goes to --output, or next to the input with a .rst extension.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "Output file (default: input with .rst extension)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := watchOutput
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".rst"
	}

	diag := cmd.ErrOrStderr()
	convert := func(in, out string) error {
		return writeFileAtomic(out, func(w io.Writer) error {
			return convertNamed(nil, in, w, diag)
		})
	}

	w, err := watch.New(input, output, convert, cfg.WatchDebounce, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return w.Run(ctx)
}

// writeFileAtomic writes through a temp file in the target's directory and
// renames it into place, so a failed run leaves the previous output intact.
func writeFileAtomic(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := fill(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace output: %w", err)
	}
	return nil
}
