package resolver

import (
	"github.com/funvibe/dcolon/internal/diagnostics"
	"github.com/funvibe/dcolon/internal/symbols"
	"github.com/funvibe/dcolon/internal/typesystem"
)

// CallSite is one `receiver::method(...)` expression as seen by the front end.
type CallSite struct {
	ID       string
	Receiver typesystem.Type
	Method   string
	Scope    symbols.ScopeID // innermost scope containing the call
	Pos      diagnostics.Position
}

// BindingKind is the outcome of resolving a call site.
type BindingKind int

const (
	Unresolved BindingKind = iota
	Resolved
	Ambiguous
)

func (k BindingKind) String() string {
	switch k {
	case Resolved:
		return "resolved"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unresolved"
	}
}

// ParseBindingKind maps a stored kind name back to its BindingKind.
func ParseBindingKind(s string) (BindingKind, bool) {
	switch s {
	case "resolved":
		return Resolved, true
	case "ambiguous":
		return Ambiguous, true
	case "unresolved":
		return Unresolved, true
	default:
		return Unresolved, false
	}
}

// Binding is the resolver's answer for a call site.
//
// Resolved carries the winning declaration in Decl together with its rank.
// Ambiguous carries every top-ranked declaration in Candidates, in lookup order.
// Unresolved carries neither.
type Binding struct {
	Kind       BindingKind
	Decl       *symbols.Declaration
	Match      typesystem.MatchKind
	Distance   int
	Candidates []symbols.Candidate
}

// OK reports whether the host may emit a direct call for this binding.
func (b Binding) OK() bool { return b.Kind == Resolved }

// Refs returns the implementation references involved in the binding.
func (b Binding) Refs() []string {
	switch b.Kind {
	case Resolved:
		return []string{b.Decl.Ref()}
	case Ambiguous:
		refs := make([]string, len(b.Candidates))
		for i, c := range b.Candidates {
			refs[i] = c.Decl.Ref()
		}
		return refs
	default:
		return nil
	}
}
