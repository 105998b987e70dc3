package translate

import (
	"errors"
	"fmt"
)

// Recoverable input problems. Neither stops a translation run.
var (
	ErrMalformedLine = errors.New("malformed directive line")
	ErrMismatchedEnd = errors.New("mismatched chunk end")
)

// Diagnostic is a non-fatal problem found on one input line.
type Diagnostic struct {
	Line     int    // 1-based input line number
	Err      error  // ErrMalformedLine or ErrMismatchedEnd
	Found    string // Kind named by the @end directive (mismatch only)
	Expected string // Kind that was open, "none" if no chunk was open (mismatch only)
}

// Message returns the human-readable text without the line number.
func (d Diagnostic) Message() string {
	if errors.Is(d.Err, ErrMismatchedEnd) {
		return fmt.Sprintf("Mismatched endchunk (%s, expected %s)", d.Found, d.Expected)
	}
	return "Line too short or does not start with @"
}

// Error formats the diagnostic as "<line>: <message>".
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%d: %s", d.Line, d.Message())
}

func (d Diagnostic) Unwrap() error {
	return d.Err
}
