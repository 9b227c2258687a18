package typesystem

import "fmt"

// MatchKind classifies how a receiver type satisfies an extension target.
// Larger values rank higher during resolution.
type MatchKind int

const (
	MatchNone       MatchKind = iota // Incompatible; excluded from candidates
	MatchGeneric                     // Target is parameterized or a union and the receiver instantiates it
	MatchStructural                  // Receiver satisfies the target's shape or declared interface
	MatchExact                       // Nominal identity
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchStructural:
		return "structural"
	case MatchGeneric:
		return "generic"
	default:
		return "none"
	}
}

// skolemPrefix marks receiver type variables frozen into rigid constants.
const skolemPrefix = "$skolem_"

// Matcher decides receiver/target compatibility with the help of an Oracle.
type Matcher struct {
	oracle Oracle
}

// NewMatcher returns a matcher backed by oracle. A nil oracle knows no
// shapes and no subtyping, so only exact, shape and generic matches apply.
func NewMatcher(oracle Oracle) *Matcher {
	if oracle == nil {
		oracle = noOracle{}
	}
	return &Matcher{oracle: oracle}
}

type noOracle struct{}

func (noOracle) ShapeOf(t Type) (TRecord, bool) {
	rec, ok := t.(TRecord)
	return rec, ok
}

func (noOracle) IsSubtype(sub, super Type) bool { return false }

// Match reports how receiver satisfies target. Exact requires both sides
// to be free of type variables, so renaming variables never changes the result.
func (m *Matcher) Match(receiver, target Type) MatchKind {
	if receiver == nil || target == nil {
		return MatchNone
	}
	if isExact(receiver, target) {
		return MatchExact
	}

	recv := skolemize(receiver)

	// A union receiver is only compatible with a target every member accepts.
	// Resolution never splits a call per member; that would be runtime dispatch.
	if union, ok := recv.(TUnion); ok {
		for _, member := range union.Types {
			if m.matchSingle(member, target) == MatchNone {
				return MatchNone
			}
		}
		return MatchGeneric
	}

	return m.matchSingle(recv, target)
}

func (m *Matcher) matchSingle(recv, target Type) MatchKind {
	if isExact(recv, target) {
		return MatchExact
	}

	if IsGeneric(target) {
		inst := RenameTypeVars(target, "ext")
		if _, err := Unify(inst, recv); err == nil {
			return MatchGeneric
		}
		if rec, ok := inst.(TRecord); ok {
			if shape, ok := m.oracle.ShapeOf(recv); ok {
				if _, err := UnifyAllowExtra(rec, shape); err == nil {
					return MatchGeneric
				}
			}
		}
		return MatchNone
	}

	switch tgt := target.(type) {
	case TRecord:
		if shape, ok := m.oracle.ShapeOf(recv); ok {
			if _, err := UnifyAllowExtra(tgt, shape); err == nil {
				return MatchStructural
			}
		}
	case TUnion:
		if _, err := Unify(tgt, recv); err == nil {
			return MatchGeneric
		}
	case TCon, TApp:
		if m.oracle.IsSubtype(recv, tgt) {
			return MatchStructural
		}
	}
	return MatchNone
}

func isExact(recv, target Type) bool {
	return !IsGeneric(recv) && !IsGeneric(target) && Key(recv) == Key(target)
}

// skolemize freezes the receiver's own type variables into rigid constants
// so that they never bind to a concrete target during matching.
func skolemize(t Type) Type {
	vars := t.FreeTypeVariables()
	if len(vars) == 0 {
		return t
	}
	subst := make(Subst, len(vars))
	for _, v := range vars {
		subst[v.Name] = TCon{Name: fmt.Sprintf("%s%s", skolemPrefix, v.Name)}
	}
	return t.Apply(subst)
}
