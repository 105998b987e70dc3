// Package translate turns a noweb tagged directive stream into
// reStructuredText.
package translate

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	kindCode = "code"
	kindDocs = "docs"

	indent = "\t"
)

// Translator holds the state of one translation session. It is not safe
// for concurrent use; run one Translator per input stream.
type Translator struct {
	w   io.Writer
	log *slog.Logger
	err error // first write error, sticky

	onDiagnostic func(Diagnostic)

	lineNum int

	chunk   string // kind of the open chunk
	inChunk bool

	codeBegin bool // set by @begin code, cleared by the next @nl

	anchors     map[string]struct{}
	lastDefn    string
	haveDefn    bool
	lastDefnAdd bool
}

// New creates a Translator writing markup to w.
func New(w io.Writer, log *slog.Logger) *Translator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Translator{
		w:       w,
		log:     log,
		anchors: make(map[string]struct{}),
	}
}

// SetDiagnosticHandler sets the callback that receives each diagnostic.
func (t *Translator) SetDiagnosticHandler(fn func(Diagnostic)) {
	t.onDiagnostic = fn
}

// Run translates every line of r. Malformed input never makes Run fail;
// only read and write errors are returned.
func (t *Translator) Run(r io.Reader) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			t.Line(trimEOL(line))
			if t.err != nil {
				return fmt.Errorf("write output: %w", t.err)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}
}

// trimEOL strips a trailing "\n" or "\r\n". Lines have no length limit.
func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// Line processes a single directive line without its terminator.
func (t *Translator) Line(line string) {
	t.lineNum++

	if len(line) == 0 || line[0] != '@' {
		t.report(Diagnostic{Line: t.lineNum, Err: ErrMalformedLine})
		return
	}

	keyword, arg, _ := strings.Cut(line, " ")
	switch keyword {
	case "@text":
		t.write(arg)
	case "@nl":
		t.newline()
	case "@file":
	case "@defn":
		t.define(arg)
	case "@quote", "@endquote":
		t.write("``")
	case "@use":
		t.write("<<" + arg + ">>")
	case "@begin":
		t.begin(firstField(arg))
	case "@end":
		t.end(firstField(arg))
	default:
		t.log.Debug("ignoring directive", "line", t.lineNum, "keyword", keyword)
	}
}

// Err returns the first write error, if any.
func (t *Translator) Err() error {
	return t.err
}

func (t *Translator) newline() {
	t.write("\n")
	switch {
	case t.codeBegin:
		t.codeBegin = false
		if !t.haveDefn {
			t.log.Debug("code block opened before any definition", "line", t.lineNum)
		}
		t.write(fmt.Sprintf(".. highlight:: %s\n\n", HighlightLanguage(t.lastDefn)))
		add := ""
		if t.lastDefnAdd {
			add = "+"
		}
		t.write(fmt.Sprintf("``⟨%s⟩%s≡`` ::\n", t.lastDefn, add))
		t.write(indent + "\n")
		t.write(indent)
	case t.inChunk && t.chunk == kindCode:
		t.write(indent)
	}
}

func (t *Translator) define(name string) {
	if _, seen := t.anchors[name]; !seen {
		t.write(fmt.Sprintf(".. _%s:\n", AnchorLabel(name)))
		t.anchors[name] = struct{}{}
		t.lastDefnAdd = false
	} else {
		t.lastDefnAdd = true
	}
	t.lastDefn = name
	t.haveDefn = true
}

func (t *Translator) begin(kind string) {
	t.chunk = kind
	t.inChunk = true
	if kind == kindCode {
		t.codeBegin = true
	}
}

func (t *Translator) end(kind string) {
	open := "none"
	if t.inChunk {
		open = t.chunk
	}
	if !t.inChunk || kind != t.chunk {
		t.report(Diagnostic{Line: t.lineNum, Err: ErrMismatchedEnd, Found: kind, Expected: open})
	}
	if kind == kindDocs {
		t.write("\n")
	}
	t.chunk = ""
	t.inChunk = false
}

func (t *Translator) report(d Diagnostic) {
	t.log.Debug("diagnostic", "line", d.Line, "error", d.Err)
	if t.onDiagnostic != nil {
		t.onDiagnostic(d)
	}
}

func (t *Translator) write(s string) {
	if t.err != nil {
		return
	}
	_, t.err = io.WriteString(t.w, s)
}

// HighlightLanguage picks the Sphinx highlight label for a chunk name.
func HighlightLanguage(name string) string {
	switch {
	case strings.HasSuffix(name, ".s"):
		return "gas"
	case strings.HasSuffix(name, ".simple"):
		return "none"
	}
	return "c"
}

// AnchorLabel converts a chunk name into a reST target label.
func AnchorLabel(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Translate runs a fresh session over r, writing markup to w and one
// "<line>: <message>" line per diagnostic to diag.
func Translate(r io.Reader, w io.Writer, diag io.Writer, log *slog.Logger) error {
	t := New(w, log)
	t.SetDiagnosticHandler(func(d Diagnostic) {
		fmt.Fprintln(diag, d.Error())
	})
	return t.Run(r)
}
