package translate

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func run(t *testing.T, lines ...string) (string, []Diagnostic) {
	t.Helper()
	var out bytes.Buffer
	var diags []Diagnostic
	tr := New(&out, nil)
	tr.SetDiagnosticHandler(func(d Diagnostic) { diags = append(diags, d) })
	if err := tr.Run(strings.NewReader(strings.Join(lines, "\n") + "\n")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out.String(), diags
}

func TestTranslate_Directives(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"text verbatim", []string{"@text hello  world"}, "hello  world"},
		{"text keeps extra leading space", []string{"@text   x"}, "  x"},
		{"text without argument", []string{"@text"}, ""},
		{"newline outside chunk", []string{"@nl"}, "\n"},
		{"file is consumed", []string{"@file notes.nw"}, ""},
		{"quote and endquote", []string{"@quote", "@text x", "@endquote"}, "``x``"},
		{"use", []string{"@use helper functions"}, "<<helper functions>>"},
		{"unknown directive ignored", []string{"@xref label x", "@index defn y"}, ""},
		{"docs end adds newline", []string{"@begin docs 0", "@text para", "@nl", "@end docs 0"}, "para\n\n"},
		{"newline inside code indents", []string{"@begin code 1", "@nl", "@text x", "@nl", "@end code 1"}, "\n.. highlight:: c\n\n``⟨⟩≡`` ::\n\t\n\tx\n\t"},
		{"code flag survives until next newline", []string{"@begin code 1", "@end code 1", "@begin docs 2", "@end docs 2", "@nl"}, "\n\n.. highlight:: c\n\n``⟨⟩≡`` ::\n\t\n\t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diags := run(t, tt.lines...)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
			if len(diags) != 0 {
				t.Errorf("expected no diagnostics, got %v", diags)
			}
		})
	}
}

func TestTranslate_CodeChunkExample(t *testing.T) {
	got, diags := run(t,
		"@begin code 0",
		"@defn foo.c",
		"@nl",
		"@text hello",
		"@end code 0",
	)
	want := ".. _foo.c:\n" +
		"\n" +
		".. highlight:: c\n\n" +
		"``⟨foo.c⟩≡`` ::\n" +
		"\t\n" +
		"\thello"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %v", diags)
	}
}

func TestTranslate_HighlightLanguage(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"start.s", "gas"},
		{"grammar.simple", "none"},
		{"main.c", "c"},
		{"notes", "c"},
		{"x.simple.s", "gas"},
		{"boot.S", "c"},
	}
	for _, tt := range tests {
		if got := HighlightLanguage(tt.name); got != tt.want {
			t.Errorf("HighlightLanguage(%q): expected %q, got %q", tt.name, tt.want, got)
		}

		out, _ := run(t, "@begin code 0", "@defn "+tt.name, "@nl")
		if !strings.Contains(out, ".. highlight:: "+tt.want+"\n") {
			t.Errorf("%s: expected highlight %q in output, got %q", tt.name, tt.want, out)
		}
	}
}

func TestTranslate_DefinitionAnchors(t *testing.T) {
	got, _ := run(t, "@defn main loop", "@defn other", "@defn main loop")
	want := ".. _main_loop:\n.. _other:\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTranslate_AdditionMarksReference(t *testing.T) {
	got, _ := run(t,
		"@begin code 0", "@defn a b", "@nl", "@end code 0",
		"@begin code 1", "@defn a b", "@nl", "@end code 1",
		"@begin code 2", "@defn c", "@nl", "@end code 2",
	)
	if strings.Count(got, ".. _a_b:\n") != 1 {
		t.Errorf("expected exactly one anchor for %q, got %q", "a b", got)
	}
	for _, ref := range []string{"``⟨a b⟩≡`` ::", "``⟨a b⟩+≡`` ::", "``⟨c⟩≡`` ::"} {
		if !strings.Contains(got, ref) {
			t.Errorf("expected reference line %q in %q", ref, got)
		}
	}
	if first, second := strings.Index(got, "``⟨a b⟩≡``"), strings.Index(got, "``⟨a b⟩+≡``"); first > second {
		t.Errorf("expected fresh definition before addition, got %q", got)
	}
}

func TestTranslate_MalformedLines(t *testing.T) {
	got, diags := run(t, "@text ok", "", "text without sentinel", "@nl")
	if got != "ok\n" {
		t.Errorf("expected %q, got %q", "ok\n", got)
	}
	if len(diags) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(diags))
	}
	for i, line := range []int{2, 3} {
		if diags[i].Line != line {
			t.Errorf("diag[%d]: expected line %d, got %d", i, line, diags[i].Line)
		}
		if !errors.Is(diags[i], ErrMalformedLine) {
			t.Errorf("diag[%d]: expected ErrMalformedLine, got %v", i, diags[i].Err)
		}
	}
	if want := "2: Line too short or does not start with @"; diags[0].Error() != want {
		t.Errorf("expected %q, got %q", want, diags[0].Error())
	}
}

func TestTranslate_EmptyLineOnly(t *testing.T) {
	var out, diag bytes.Buffer
	if err := Translate(strings.NewReader("\n"), &out, &diag, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
	if want := "1: Line too short or does not start with @\n"; diag.String() != want {
		t.Errorf("expected %q, got %q", want, diag.String())
	}
}

func TestTranslate_ChunkEndMismatch(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		wantDiag string
	}{
		{"matching", []string{"@begin docs 0", "@end docs 0"}, ""},
		{"different kind", []string{"@begin code 0", "@end docs 0"}, "2: Mismatched endchunk (docs, expected code)"},
		{"nothing open", []string{"@nl", "@end code 3"}, "2: Mismatched endchunk (code, expected none)"},
		{"closed twice", []string{"@begin docs 0", "@end docs 0", "@end docs 0"}, "3: Mismatched endchunk (docs, expected none)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := run(t, tt.lines...)
			if tt.wantDiag == "" {
				if len(diags) != 0 {
					t.Fatalf("expected no diagnostics, got %v", diags)
				}
				return
			}
			if len(diags) != 1 {
				t.Fatalf("expected 1 diagnostic, got %d", len(diags))
			}
			if diags[0].Error() != tt.wantDiag {
				t.Errorf("expected %q, got %q", tt.wantDiag, diags[0].Error())
			}
			if !errors.Is(diags[0], ErrMismatchedEnd) {
				t.Errorf("expected ErrMismatchedEnd, got %v", diags[0].Err)
			}
		})
	}
}

func TestTranslate_MismatchStillClosesChunk(t *testing.T) {
	tr := New(&bytes.Buffer{}, nil)
	tr.Line("@begin code 0")
	tr.Line("@end docs 0")
	if tr.inChunk || tr.chunk != "" {
		t.Errorf("expected chunk closed, got inChunk=%v chunk=%q", tr.inChunk, tr.chunk)
	}
}

func TestTranslate_SessionState(t *testing.T) {
	tr := New(&bytes.Buffer{}, nil)
	if tr.haveDefn {
		t.Fatal("expected no definition before any @defn")
	}

	tr.Line("@begin code 0")
	if !tr.codeBegin {
		t.Fatal("expected code block flag after @begin code")
	}
	tr.Line("@defn x.s")
	if !tr.codeBegin || !tr.haveDefn || tr.lastDefn != "x.s" || tr.lastDefnAdd {
		t.Fatalf("unexpected state after @defn: %+v", tr)
	}
	tr.Line("@nl")
	if tr.codeBegin {
		t.Error("expected code block flag cleared by @nl")
	}

	tr.Line("@begin docs 1")
	if tr.codeBegin {
		t.Error("expected docs chunk not to set code block flag")
	}
}

func TestTranslate_CRLFInput(t *testing.T) {
	var out bytes.Buffer
	if err := New(&out, nil).Run(strings.NewReader("@text a\r\n@nl\r\n")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "a\n" {
		t.Errorf("expected %q, got %q", "a\n", out.String())
	}
}

func TestTranslate_Deterministic(t *testing.T) {
	input := "@file x.nw\n@begin docs 0\n@text intro\n@nl\n@end docs 0\n@begin code 1\n@defn x\n@nl\n@use y\n@nl\n@end docs 1\n\n"
	var out1, diag1, out2, diag2 bytes.Buffer
	if err := Translate(strings.NewReader(input), &out1, &diag1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Translate(strings.NewReader(input), &out2, &diag2, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out1.Bytes(), out2.Bytes()) || !bytes.Equal(diag1.Bytes(), diag2.Bytes()) {
		t.Error("expected identical output and diagnostics across runs")
	}
	if diag1.String() != "11: Mismatched endchunk (docs, expected code)\n12: Line too short or does not start with @\n" {
		t.Errorf("unexpected diagnostics %q", diag1.String())
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestTranslate_WriteError(t *testing.T) {
	err := New(failWriter{}, nil).Run(strings.NewReader("@text a\n@nl\n"))
	if err == nil || !strings.Contains(err.Error(), "write output: disk full") {
		t.Errorf("expected wrapped write error, got %v", err)
	}
}

func TestAnchorLabel(t *testing.T) {
	if got := AnchorLabel("parse the  input"); got != "parse_the__input" {
		t.Errorf("expected %q, got %q", "parse_the__input", got)
	}
}

func TestTranslate_LongLine(t *testing.T) {
	long := strings.Repeat("x", 2<<20)
	var out, diag bytes.Buffer
	err := Translate(strings.NewReader("@text a\n@text "+long+"\n@nl\n"), &out, &diag, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "a" + long + "\n"; out.String() != want {
		t.Errorf("expected %d bytes of output, got %d", len(want), out.Len())
	}
	if diag.Len() != 0 {
		t.Errorf("expected no diagnostics, got %q", diag.String())
	}
}

func TestTranslate_UnterminatedLastLine(t *testing.T) {
	var out bytes.Buffer
	if err := New(&out, nil).Run(strings.NewReader("@nl\n@text tail")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "\ntail" {
		t.Errorf("expected %q, got %q", "\ntail", out.String())
	}
}

func TestTranslate_LogsCodeBlockWithoutDefinition(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tr := New(&bytes.Buffer{}, log)
	tr.Line("@begin code 0")
	tr.Line("@nl")
	if !strings.Contains(logs.String(), "code block opened before any definition") {
		t.Errorf("expected debug record for missing definition, got %q", logs.String())
	}

	logs.Reset()
	tr.Line("@defn x")
	tr.Line("@begin code 1")
	tr.Line("@nl")
	if strings.Contains(logs.String(), "before any definition") {
		t.Errorf("expected no missing-definition record after @defn, got %q", logs.String())
	}
}
