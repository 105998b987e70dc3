// Package watch retranslates an input file whenever it changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ConvertFunc performs one translation of input into output.
type ConvertFunc func(input, output string) error

// Watcher reruns a conversion when its input file is written.
type Watcher struct {
	input    string
	output   string
	convert  ConvertFunc
	debounce time.Duration
	log      *slog.Logger

	// onRun, if set, is called after every conversion attempt.
	onRun func(error)
}

// New creates a Watcher. Paths are made absolute so events can be
// matched against the watched directory.
func New(input, output string, convert ConvertFunc, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	in, err := filepath.Abs(input)
	if err != nil {
		return nil, fmt.Errorf("resolve input: %w", err)
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return nil, fmt.Errorf("resolve output: %w", err)
	}
	if in == out {
		return nil, fmt.Errorf("input and output are the same file: %s", in)
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &Watcher{
		input:    in,
		output:   out,
		convert:  convert,
		debounce: debounce,
		log:      log.With("input", in, "output", out),
	}, nil
}

// SetRunCallback sets a callback invoked after every conversion.
func (w *Watcher) SetRunCallback(cb func(error)) {
	w.onRun = cb
}

// Run converts once, then again after each change, until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files on save, so watch the directory rather
	// than the file itself.
	if err := watcher.Add(filepath.Dir(w.input)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.input), err)
	}

	w.runOnce()

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer
	defer debounceTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.input {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounceTimer.Reset(w.debounce)

		case <-debounceTimer.C:
			w.runOnce()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) runOnce() {
	start := time.Now()
	err := w.convert(w.input, w.output)
	if err != nil {
		w.log.Error("translation failed", "error", err)
	} else {
		w.log.Info("translated", "duration_ms", time.Since(start).Milliseconds())
	}
	if w.onRun != nil {
		w.onRun(err)
	}
}
