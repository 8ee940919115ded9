package symtree

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
)

type TypeKind int

const (
	TypeUndefined TypeKind = iota
	TypeVoid
	TypeInteger
	TypeFloat
	TypeNamed
	TypePointer
	TypeReference
)

var typeKindNames = [...]string{
	TypeUndefined: "undefined",
	TypeVoid:      "void",
	TypeInteger:   "integer",
	TypeFloat:     "float",
	TypeNamed:     "named",
	TypePointer:   "pointer",
	TypeReference: "reference",
}

func (k TypeKind) String() string {
	if k < 0 || int(k) >= len(typeKindNames) {
		return fmt.Sprintf("TypeKind(%d)", int(k))
	}
	return typeKindNames[k]
}

type IntKind int

const (
	IntInt IntKind = iota
	IntBool
	IntChar
	IntShort
	IntLong
)

var intKindNames = [...]string{
	IntInt:   "int",
	IntBool:  "bool",
	IntChar:  "char",
	IntShort: "short",
	IntLong:  "long",
}

func (k IntKind) String() string {
	if k < 0 || int(k) >= len(intKindNames) {
		return fmt.Sprintf("IntKind(%d)", int(k))
	}
	return intKindNames[k]
}

// Type is a native type as reported by the front end.
//
// Pointers and references wrap their pointee in Elem. Named types keep
// their namespace qualifiers ("Atomic::String") and template arguments.
type Type struct {
	Kind     TypeKind
	Const    bool
	Unsigned bool    // TypeInteger
	IntKind  IntKind // TypeInteger
	Double   bool    // TypeFloat
	Name     string  // TypeNamed, TypeUndefined
	Args     []*Type // TypeNamed template arguments
	Elem     *Type   // TypePointer, TypeReference
}

func Named(name string, args ...*Type) *Type {
	return &Type{Kind: TypeNamed, Name: name, Args: args}
}

func PointerTo(elem *Type) *Type   { return &Type{Kind: TypePointer, Elem: elem} }
func ReferenceTo(elem *Type) *Type { return &Type{Kind: TypeReference, Elem: elem} }

// BareName returns Name without namespace qualifiers.
func (t *Type) BareName() string {
	if i := strings.LastIndex(t.Name, "::"); i != -1 {
		return t.Name[i+2:]
	}
	return t.Name
}

// String renders t as a native type expression that [ParseType]
// parses back into an equivalent Type.
func (t *Type) String() string {
	if t == nil {
		return "void"
	}
	var b strings.Builder
	t.writeTo(&b)
	return b.String()
}

func (t *Type) writeTo(b *strings.Builder) {
	if t == nil {
		b.WriteString("void")
		return
	}
	switch t.Kind {
	case TypePointer, TypeReference:
		if t.Elem == nil {
			b.WriteString("void")
		} else {
			t.Elem.writeTo(b)
		}
		if t.Kind == TypePointer {
			b.WriteString("*")
			if t.Const {
				b.WriteString(" const")
			}
		} else {
			b.WriteString("&")
		}
		return
	}
	if t.Const {
		b.WriteString("const ")
	}
	switch t.Kind {
	case TypeVoid:
		b.WriteString("void")
	case TypeInteger:
		if t.Unsigned && t.IntKind != IntBool {
			b.WriteString("unsigned ")
		}
		b.WriteString(t.IntKind.String())
	case TypeFloat:
		if t.Double {
			b.WriteString("double")
		} else {
			b.WriteString("float")
		}
	case TypeNamed, TypeUndefined:
		b.WriteString(t.Name)
		if len(t.Args) > 0 {
			b.WriteString("<")
			for i, a := range t.Args {
				if i != 0 {
					b.WriteString(", ")
				}
				a.writeTo(b)
			}
			b.WriteString(">")
		}
	}
}

// jsonType is the structured JSON form of a Type.
type jsonType struct {
	Kind     string  `json:"kind"`
	Const    bool    `json:"const"`
	Unsigned bool    `json:"unsigned"`
	IntKind  string  `json:"intKind"`
	Double   bool    `json:"double"`
	Name     string  `json:"name"`
	Args     []*Type `json:"args"`
	Elem     *Type   `json:"elem"`
}

// UnmarshalJSON accepts either a type expression string or the
// structured object form.
func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseType(s)
		if err != nil {
			return err
		}
		*t = *parsed
		return nil
	}

	var jt jsonType
	if err := json.Unmarshal(data, &jt); err != nil {
		return err
	}
	if slices.Contains(jt.Args, nil) {
		return fmt.Errorf("type %q: null template argument", jt.Name)
	}
	res := Type{
		Const:    jt.Const,
		Unsigned: jt.Unsigned,
		Double:   jt.Double,
		Name:     jt.Name,
		Args:     jt.Args,
		Elem:     jt.Elem,
	}
	found := false
	for k, name := range typeKindNames {
		if name == jt.Kind {
			res.Kind = TypeKind(k)
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("unknown type kind %q", jt.Kind)
	}
	if jt.IntKind != "" {
		found = false
		for k, name := range intKindNames {
			if name == jt.IntKind {
				res.IntKind = IntKind(k)
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown integer kind %q", jt.IntKind)
		}
	}
	*t = res
	return nil
}

func (t *Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

var errUnexpectedEnd = errors.New("unexpected end of type expression")

type typeParser struct {
	src  string
	toks []string
	pos  int
}

func tokenizeType(s string) ([]string, error) {
	var toks []string
	for i := 0; i < len(s); {
		c := rune(s[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case strings.ContainsRune("<>,*&", c):
			toks = append(toks, string(c))
			i++
		case isIdentRune(c) || c == ':':
			j := i
			for j < len(s) && (isIdentRune(rune(s[j])) || s[j] == ':') {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q in type expression %q", c, s)
		}
	}
	return toks, nil
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ParseType parses a native type expression such as "const String&",
// "unsigned int", "Vector<SharedPtr<Texture>>" or "Node*".
//
// A bare "unsigned" is kept as the named type "unsigned", which is how
// the front end reports it.
func ParseType(s string) (*Type, error) {
	toks, err := tokenizeType(s)
	if err != nil {
		return nil, err
	}
	p := &typeParser{src: s, toks: toks}
	t, err := p.parseType()
	if err != nil {
		return nil, fmt.Errorf("parse type %q: %w", s, err)
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("parse type %q: unexpected %q", s, p.toks[p.pos])
	}
	return t, nil
}

func (p *typeParser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *typeParser) next() string {
	tok := p.peek()
	p.pos++
	return tok
}

var builtinWords = map[string]bool{
	"unsigned": true, "signed": true, "short": true, "long": true,
	"int": true, "char": true, "bool": true, "float": true, "double": true,
	"void": true,
}

func (p *typeParser) parseType() (*Type, error) {
	isConst := false
	for p.peek() == "const" || p.peek() == "volatile" {
		if p.next() == "const" {
			isConst = true
		}
	}

	var t *Type
	switch tok := p.peek(); {
	case tok == "":
		return nil, errUnexpectedEnd
	case builtinWords[tok]:
		var words []string
		for builtinWords[p.peek()] {
			words = append(words, p.next())
		}
		var err error
		t, err = builtinType(words)
		if err != nil {
			return nil, err
		}
	case tok == "struct" || tok == "class" || tok == "enum":
		p.next()
		return p.parseTypeAfterConst(isConst)
	default:
		return p.parseTypeAfterConst(isConst)
	}
	t.Const = t.Const || isConst
	return p.parseSuffixes(t)
}

func (p *typeParser) parseTypeAfterConst(isConst bool) (*Type, error) {
	name := p.next()
	if name == "" {
		return nil, errUnexpectedEnd
	}
	if !isIdentRune(rune(name[0])) && name[0] != ':' {
		return nil, fmt.Errorf("expected type name, got %q", name)
	}
	t := &Type{Kind: TypeNamed, Name: name, Const: isConst}
	if p.peek() == "<" {
		p.next()
		for {
			arg, err := p.parseType()
			if err != nil {
				return nil, err
			}
			t.Args = append(t.Args, arg)
			switch tok := p.next(); tok {
			case ",":
				continue
			case ">":
			case "":
				return nil, errUnexpectedEnd
			default:
				return nil, fmt.Errorf("expected \",\" or \">\", got %q", tok)
			}
			break
		}
	}
	return p.parseSuffixes(t)
}

func (p *typeParser) parseSuffixes(t *Type) (*Type, error) {
	for {
		switch p.peek() {
		case "const":
			p.next()
			t.Const = true
		case "volatile":
			p.next()
		case "*":
			p.next()
			t = PointerTo(t)
		case "&":
			p.next()
			if p.peek() == "&" {
				// rvalue reference; treat like a reference
				p.next()
			}
			t = ReferenceTo(t)
		default:
			return t, nil
		}
	}
}

func builtinType(words []string) (*Type, error) {
	count := map[string]int{}
	for _, w := range words {
		count[w]++
	}
	t := &Type{Kind: TypeInteger, IntKind: IntInt, Unsigned: count["unsigned"] > 0}
	switch {
	case count["void"] > 0:
		if len(words) != 1 {
			return nil, fmt.Errorf("invalid builtin type %q", strings.Join(words, " "))
		}
		return &Type{Kind: TypeVoid}, nil
	case count["float"] > 0:
		return &Type{Kind: TypeFloat}, nil
	case count["double"] > 0:
		return &Type{Kind: TypeFloat, Double: true}, nil
	case count["bool"] > 0:
		t.IntKind = IntBool
	case count["char"] > 0:
		t.IntKind = IntChar
	case count["short"] > 0:
		t.IntKind = IntShort
	case count["long"] > 0:
		t.IntKind = IntLong
	case count["int"] > 0 || count["signed"] > 0:
	case count["unsigned"] > 0:
		// The front end hands a lone "unsigned" through as an identifier.
		return &Type{Kind: TypeNamed, Name: "unsigned"}, nil
	}
	return t, nil
}
