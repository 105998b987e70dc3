// Package frontend turns an input file into the tagged directive stream
// and runs it through the translator.
package frontend

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dgallion1/noweb2rst/internal/markup"
	"github.com/dgallion1/noweb2rst/internal/translate"
)

// Frontend produces a tagged directive stream from raw input.
type Frontend interface {
	Tagged(r io.Reader, name string) (io.Reader, error)
}

// Input formats accepted by ForFormat.
const (
	FormatTagged = "tagged"
	FormatNoweb  = "nw"
)

// NowebExtensions lists file extensions treated as noweb source.
var NowebExtensions = map[string]bool{
	".nw":    true,
	".noweb": true,
}

// ForFile returns the frontend for a filename. Anything that is not noweb
// source, including stdin, is read as an already tagged stream.
func ForFile(filename string) Frontend {
	if IsNoweb(filename) {
		return &NowebFrontend{}
	}
	return &TaggedFrontend{}
}

// ForFormat returns the frontend for an explicit format name.
func ForFormat(format string) (Frontend, error) {
	switch strings.ToLower(format) {
	case "", FormatTagged:
		return &TaggedFrontend{}, nil
	case FormatNoweb, "noweb":
		return &NowebFrontend{}, nil
	default:
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}
}

// IsNoweb checks if a filename has a noweb source extension.
func IsNoweb(filename string) bool {
	return NowebExtensions[strings.ToLower(filepath.Ext(filename))]
}

// TaggedFrontend passes input through unchanged.
type TaggedFrontend struct{}

func (f *TaggedFrontend) Tagged(r io.Reader, name string) (io.Reader, error) {
	return r, nil
}

// NowebFrontend runs noweb markup over the source.
type NowebFrontend struct{}

func (f *NowebFrontend) Tagged(r io.Reader, name string) (io.Reader, error) {
	var buf bytes.Buffer
	if err := markup.Markup(r, &buf, name); err != nil {
		return nil, fmt.Errorf("markup %s: %w", name, err)
	}
	return &buf, nil
}

// Convert runs one translation session: fe prepares the directive stream
// from r, the translator writes reST to w and hands each diagnostic to
// onDiag.
func Convert(fe Frontend, r io.Reader, name string, w io.Writer, log *slog.Logger, onDiag func(translate.Diagnostic)) error {
	tagged, err := fe.Tagged(r, name)
	if err != nil {
		return err
	}
	t := translate.New(w, log)
	t.SetDiagnosticHandler(onDiag)
	return t.Run(tagged)
}
