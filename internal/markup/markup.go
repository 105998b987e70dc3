// Package markup converts noweb source (.nw) into the tagged directive
// stream consumed by package translate.
package markup

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

type marker struct {
	w   io.Writer
	err error

	kind string // "docs" or "code"
	num  int    // chunk number, counting from 0
}

// Markup reads noweb source from r and writes one directive per line to w.
// filename, when non-empty, is announced with @file.
func Markup(r io.Reader, w io.Writer, filename string) error {
	m := &marker{w: w, kind: "docs"}

	if filename != "" {
		m.emit("@file " + filename)
	}
	m.emit(fmt.Sprintf("@begin docs %d", m.num))

	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			m.line(line)
			if m.err != nil {
				return fmt.Errorf("write directives: %w", m.err)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read noweb source: %w", err)
		}
	}

	m.emit(fmt.Sprintf("@end %s %d", m.kind, m.num))
	return m.err
}

func (m *marker) line(line string) {
	if name, ok := DefinitionName(line); ok {
		m.open("code")
		m.emit("@defn " + name)
		m.emit("@nl")
		return
	}

	if isDocsStart(line) {
		m.open("docs")
		if len(line) > 1 {
			m.docsText(line[2:])
		}
		m.emit("@nl")
		return
	}

	if m.kind == "code" {
		m.codeText(line)
	} else {
		if strings.HasPrefix(line, "@@") {
			line = line[1:]
		}
		m.docsText(line)
	}
	m.emit("@nl")
}

// open closes the current chunk and starts the next one.
func (m *marker) open(kind string) {
	m.emit(fmt.Sprintf("@end %s %d", m.kind, m.num))
	m.num++
	m.kind = kind
	m.emit(fmt.Sprintf("@begin %s %d", m.kind, m.num))
}

// codeText splits a code line into @text and @use directives. "@<<"
// stands for a literal "<<".
func (m *marker) codeText(line string) {
	var text strings.Builder
	for i := 0; i < len(line); {
		switch {
		case strings.HasPrefix(line[i:], "@<<"):
			text.WriteString("<<")
			i += 3
		case strings.HasPrefix(line[i:], "<<"):
			end := strings.Index(line[i+2:], ">>")
			if end < 0 {
				text.WriteString(line[i:])
				i = len(line)
				continue
			}
			m.text(text.String())
			text.Reset()
			m.emit("@use " + line[i+2:i+2+end])
			i += end + 4
		default:
			text.WriteByte(line[i])
			i++
		}
	}
	m.text(text.String())
}

// docsText splits a documentation line around [[quoted code]].
func (m *marker) docsText(line string) {
	for {
		start := strings.Index(line, "[[")
		if start < 0 {
			break
		}
		end := strings.Index(line[start+2:], "]]")
		if end < 0 {
			break
		}
		m.text(line[:start])
		m.emit("@quote")
		m.text(line[start+2 : start+2+end])
		m.emit("@endquote")
		line = line[start+2+end+2:]
	}
	m.text(line)
}

func (m *marker) text(s string) {
	if s != "" {
		m.emit("@text " + s)
	}
}

func (m *marker) emit(directive string) {
	if m.err != nil {
		return
	}
	_, m.err = io.WriteString(m.w, directive+"\n")
}

// DefinitionName reports whether line opens a code chunk ("<<name>>=")
// and returns the chunk name.
func DefinitionName(line string) (string, bool) {
	line = strings.TrimRight(line, " \t")
	if !strings.HasPrefix(line, "<<") || !strings.HasSuffix(line, ">>=") || len(line) < 6 {
		return "", false
	}
	return line[2 : len(line)-3], true
}

func isDocsStart(line string) bool {
	if line == "@" {
		return true
	}
	return len(line) > 1 && line[0] == '@' && (line[1] == ' ' || line[1] == '\t')
}
