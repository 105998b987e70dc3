package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dgallion1/noweb2rst/internal/config"
	"github.com/dgallion1/noweb2rst/internal/frontend"
	"github.com/dgallion1/noweb2rst/internal/translate"
	"github.com/spf13/cobra"
)

var (
	cfg config.Config
	log *slog.Logger

	outputPath string
)

var rootCmd = &cobra.Command{
	Use:   "noweb2rst [file...]",
	Short: "Translate noweb output into reStructuredText",
	Long: `noweb2rst reads the tagged directive stream produced by noweb's markup
stage and writes reStructuredText suitable for Sphinx.

With no arguments it filters stdin to stdout. Files ending in .nw are run
through the built-in markup stage first; "-" names stdin. Problems with the
input are reported on stderr as "<line>: <message>" and never stop the run.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Only serve validates the config.
		cfg = config.Load()
		level, err := cfg.SlogLevel()
		if err != nil {
			level = slog.LevelWarn
		}
		log = newLogger(cmd.ErrOrStderr(), cfg.LogFormat, level)
		if err != nil {
			log.Warn("using default log level", "error", err)
		}
		return nil
	},
	RunE: runTranslate,
}

func init() {
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write output to file instead of stdout")

	rootCmd.AddCommand(markupCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "noweb2rst:", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func runTranslate(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"-"}
	}

	out, closeOut, err := openOutput(cmd.OutOrStdout(), outputPath)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(out)

	for _, name := range args {
		if err := convertNamed(cmd.InOrStdin(), name, bw, cmd.ErrOrStderr()); err != nil {
			closeOut()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		closeOut()
		return fmt.Errorf("write output: %w", err)
	}
	return closeOut()
}

// convertNamed translates one input, "-" being stdin. Diagnostics for
// named files carry a "<file>:" prefix.
func convertNamed(stdin io.Reader, name string, w io.Writer, diag io.Writer) error {
	in := stdin
	prefix := ""
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
		prefix = name + ":"
	}

	fileLog := log.With("file", name)
	fileLog.Debug("translating")
	diagnostics := 0
	err := frontend.Convert(frontend.ForFile(name), in, fileName(name), w, fileLog, func(d translate.Diagnostic) {
		diagnostics++
		fmt.Fprintf(diag, "%s%s\n", prefix, d.Error())
	})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	fileLog.Debug("translated", "diagnostics", diagnostics)
	return nil
}

func fileName(name string) string {
	if name == "-" {
		return ""
	}
	return name
}

func openOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
