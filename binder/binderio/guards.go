package binderio

import "strings"

// GuardSyntax selects how preprocessor conditions are spelled.
type GuardSyntax int

const (
	// NativeGuard conditions test with defined(...).
	NativeGuard GuardSyntax = iota
	// ManagedGuard conditions name the symbol directly.
	ManagedGuard
)

func (s GuardSyntax) term(pred string) string {
	if s == NativeGuard {
		return "defined(" + pred + ")"
	}
	return pred
}

// AnyOf returns the condition that holds if any of preds is defined,
// or "" for no predicates.
func AnyOf(s GuardSyntax, preds []string) string {
	terms := make([]string, len(preds))
	for i, p := range preds {
		terms[i] = s.term(p)
	}
	return strings.Join(terms, " || ")
}

// NoneOf returns the condition that holds if none of preds is
// defined, or "" for no predicates.
func NoneOf(s GuardSyntax, preds []string) string {
	terms := make([]string, len(preds))
	for i, p := range preds {
		terms[i] = "!" + s.term(p)
	}
	return strings.Join(terms, " && ")
}

// If writes "#if cond" and returns the function writing the matching
// "#endif". For an empty cond both write nothing.
func (w *CodeBuilder) If(cond string) (endif func()) {
	if cond == "" {
		return func() {}
	}
	indent := w.Indent
	w.Indent = 0
	w.Linef("#if %v", cond)
	w.Indent = indent
	return func() {
		indent := w.Indent
		w.Indent = 0
		w.Linef("#endif")
		w.Indent = indent
	}
}
