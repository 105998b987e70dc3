package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/noweb2rst/internal/frontend"
	"github.com/dgallion1/noweb2rst/internal/translate"
)

// DiagnosticJSON is one diagnostic in a translate response.
type DiagnosticJSON struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// TranslateResponse is the body returned by POST /api/translate.
type TranslateResponse struct {
	Output      string           `json:"output"`
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	filename := sanitizeFilename(r.URL.Query().Get("filename"))
	fe := frontend.ForFile(filename)
	if format := r.URL.Query().Get("format"); format != "" {
		var err error
		if fe, err = frontend.ForFormat(format); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	start := time.Now()
	var out bytes.Buffer
	diags := []DiagnosticJSON{}
	err := frontend.Convert(fe, r.Body, filename, &out, s.log.With("filename", filename), func(d translate.Diagnostic) {
		diags = append(diags, DiagnosticJSON{Line: d.Line, Message: d.Message()})
	})
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("input exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		s.log.Error("translate failed", "error", err)
		jsonError(w, "failed to read input", http.StatusBadRequest)
		return
	}
	s.stats.Record(time.Since(start), len(diags))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TranslateResponse{
		Output:      out.String(),
		Diagnostics: diags,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"translations": s.stats.Snapshot(),
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// sanitizeFilename keeps only a base name; an empty name stays empty so
// no @file directive is announced.
func sanitizeFilename(name string) string {
	if name == "" {
		return ""
	}
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "." {
		return ""
	}
	return name
}
