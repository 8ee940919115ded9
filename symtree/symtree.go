// Package symtree holds the pre-parsed symbol tree handed to the generator
// by the native-language front end.
//
// The front end serializes one [Header] document per native header. Types
// can be given either as structured objects or as native type expressions
// (see [ParseType]).
package symtree

import (
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-json"
)

type DeclKind string

const (
	DeclClass     DeclKind = "class"
	DeclFunction  DeclKind = "function"
	DeclVariable  DeclKind = "variable"
	DeclTypedef   DeclKind = "typedef"
	DeclEnum      DeclKind = "enum"
	DeclNamespace DeclKind = "namespace"
)

type Access string

const (
	AccessDefault   Access = ""
	AccessPublic    Access = "public"
	AccessProtected Access = "protected"
	AccessPrivate   Access = "private"
)

// Header is the symbol tree of a single native header.
type Header struct {
	File     string    `json:"file"`
	Comments []Comment `json:"comments"`
	Decls    []*Decl   `json:"decls"`

	commentsByEndLine map[int]int // index into Comments
}

// Comment is a single comment token. A run of line comments is
// reported as one token per line.
type Comment struct {
	Line    int    `json:"line"`
	EndLine int    `json:"endLine"`
	Text    string `json:"text"`
	Block   bool   `json:"block"`
}

type Decl struct {
	Kind   DeclKind `json:"kind"`
	Name   string   `json:"name"`
	Line   int      `json:"line"`
	Column int      `json:"column"`
	Access Access   `json:"access"`

	// Class
	Bases    []string `json:"bases"`
	Members  []*Decl  `json:"members"` // also namespace members
	Template bool     `json:"template"`
	// Forward marks a declaration without a definition, e.g. "class Foo;".
	Forward bool `json:"forward"`

	// Function
	Return   *Type   `json:"returnType"`
	Params   []Param `json:"params"`
	Virtual  bool    `json:"virtual"`
	Pure     bool    `json:"pure"`
	Static   bool    `json:"static"`
	Variadic bool    `json:"variadic"`
	Operator bool    `json:"operator"`

	// Variable, typedef
	Type *Type  `json:"type"`
	Init string `json:"init"` // initializer as written, e.g. `42` or `"text"`

	// Enum
	Enumerators []Enumerator `json:"enumerators"`
}

// IsPublic reports whether a class member is accessible from outside.
// Members without access information are treated as public.
func (d *Decl) IsPublic() bool {
	return d.Access == AccessPublic || d.Access == AccessDefault
}

// IsDefinition reports whether a class declaration can stand as the
// class's definition. A forward declaration cannot. Neither can a body
// without members or bases once a fuller declaration is found.
func (d *Decl) IsDefinition() bool {
	return !d.Forward && (len(d.Members) > 0 || len(d.Bases) > 0)
}

// IsOperator reports whether d is an operator overload.
func (d *Decl) IsOperator() bool {
	if d.Operator {
		return true
	}
	rest, ok := strings.CutPrefix(d.Name, "operator")
	if !ok {
		return false
	}
	// "operator" followed by an identifier character is just a name
	// starting with "operator" (e.g. "operatorCount").
	return rest == "" || !isIdentRune(rune(rest[0]))
}

type Param struct {
	Name    string `json:"name"`
	Type    *Type  `json:"type"`
	Default string `json:"default"` // literal as written; "" means none
}

func (p Param) HasDefault() bool { return p.Default != "" }

type Enumerator struct {
	Name  string `json:"name"`
	Value *int64 `json:"value"` // nil means implicit
}

// ParseHeader decodes a symbol-tree document.
func ParseHeader(data []byte) (*Header, error) {
	h := &Header{}
	if err := json.Unmarshal(data, h); err != nil {
		return nil, err
	}
	for i, c := range h.Comments {
		if c.EndLine == 0 {
			h.Comments[i].EndLine = c.Line
		}
	}
	return h, nil
}

func (h *Header) indexComments() {
	if h.commentsByEndLine != nil {
		return
	}
	h.commentsByEndLine = make(map[int]int, len(h.Comments))
	for i, c := range h.Comments {
		h.commentsByEndLine[c.EndLine] = i
	}
}

// DocComment returns the documentation attached to a declaration on
// declLine: either the single block comment ending on declLine-1, or
// the run of line comments whose last line is declLine-1. Comment
// markers are stripped. Returns "" if there is none.
func (h *Header) DocComment(declLine int) string {
	h.indexComments()
	i, ok := h.commentsByEndLine[declLine-1]
	if !ok {
		return ""
	}
	if c := h.Comments[i]; c.Block {
		return stripBlockComment(c.Text)
	}
	var lines []string
	for line := declLine - 1; ; line-- {
		i, ok := h.commentsByEndLine[line]
		if !ok || h.Comments[i].Block || h.Comments[i].Line != line {
			break
		}
		lines = append(lines, stripLineComment(h.Comments[i].Text))
	}
	slices.Reverse(lines)
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func stripLineComment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "/!")
	return strings.TrimPrefix(s, " ")
}

func stripBlockComment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "/*")
	s = strings.TrimLeft(s, "*!")
	s = strings.TrimSuffix(s, "*/")
	var lines []string
	for ln := range strings.SplitSeq(s, "\n") {
		ln = strings.TrimSpace(ln)
		if after, ok := strings.CutPrefix(ln, "*"); ok {
			ln = strings.TrimPrefix(after, " ")
		}
		lines = append(lines, ln)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Walk calls fn for every declaration in decls, descending into
// namespaces (but not into class members).
func Walk(decls []*Decl, fn func(*Decl)) {
	for _, d := range decls {
		if d.Kind == DeclNamespace {
			Walk(d.Members, fn)
			continue
		}
		fn(d)
	}
}

// Location formats a source position like "file:line:column".
func Location(file string, line, column int) string {
	return fmt.Sprintf("%v:%v:%v", file, line, column)
}
