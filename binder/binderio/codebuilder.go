package binderio

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/nativebind/bindgen/textutils"
)

// DefaultTab is the indentation unit of generated source.
const DefaultTab = "    "

// CodeBuilder is a wrapper around [strings.Builder] that simplifies
// building C-family source code.
//
// The zero value is safely ready to use.
type CodeBuilder struct {
	// Indent is the indentation level.
	Indent int
	// Tab is one level of indentation. Empty means [DefaultTab].
	Tab string

	b strings.Builder
}

func (w *CodeBuilder) tab() string {
	if w.Tab == "" {
		return DefaultTab
	}
	return w.Tab
}

// Write appends a raw string to the internal [strings.Builder].
func (w *CodeBuilder) Write(s string) {
	w.b.WriteString(s)
}

// Append writes the given string line by line with correct indentation.
func (w *CodeBuilder) Append(s string) {
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		w.Linef("%v", sc.Text())
	}
}

// Linef writes a single line, prepended by the current indentation.
// Empty lines are written without indentation.
//
// Takes format and args like [fmt.Printf].
func (w *CodeBuilder) Linef(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if line != "" {
		for range w.Indent {
			w.b.WriteString(w.tab())
		}
		w.b.WriteString(line)
	}
	w.b.WriteString("\n")
}

// Open writes a line ending a block opener, e.g. "class Foo", followed
// by "{", and indents by one level.
func (w *CodeBuilder) Open(format string, args ...any) {
	w.Linef(format, args...)
	w.Linef("{")
	w.Indent++
}

// Close unindents by one level and writes "}" plus suffix.
func (w *CodeBuilder) Close(suffix string) {
	w.Indent--
	w.Linef("}%v", suffix)
}

// Comment writes doc as a comment block with the given line prefix,
// e.g. "/// ". Nothing is written for an empty doc.
func (w *CodeBuilder) Comment(doc, linePrefix string) {
	w.Append(textutils.CommentLines(doc, linePrefix))
}

// String returns the current code.
func (w *CodeBuilder) String() string {
	return w.b.String()
}

func (w *CodeBuilder) Reset() {
	w.Indent = 0
	w.b.Reset()
}
