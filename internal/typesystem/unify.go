package typesystem

import (
	"fmt"
)

// Unify attempts to find a substitution that makes t1 and t2 equal.
// It enforces strict equality (invariant).
func Unify(t1, t2 Type) (Subst, error) {
	return unifyInternal(t1, t2, false, nil)
}

// UnifyAllowExtra attempts to unify t1 and t2, allowing t2 to have extra fields if t1 is a Record.
// This implements width subtyping (t2 is a subtype of t1).
// t1 is the Expected type (Supertype), t2 is the Actual type (Subtype).
func UnifyAllowExtra(t1, t2 Type) (Subst, error) {
	return unifyInternal(t1, t2, true, nil)
}

// typePair represents a pair of types being compared for co-induction
type typePair struct {
	t1 string
	t2 string
}

func unifyInternal(t1, t2 Type, allowExtra bool, visited []typePair) (Subst, error) {
	if t1 == nil || t2 == nil {
		return nil, errMismatch("missing type")
	}

	k1, k2 := Key(t1), Key(t2)
	for _, p := range visited {
		if p.t1 == k1 && p.t2 == k2 {
			// Cycle detected, assume success (co-induction)
			return Subst{}, nil
		}
	}
	visited = append(visited, typePair{t1: k1, t2: k2})

	if k1 == k2 && len(t1.FreeTypeVariables()) == 0 {
		return Subst{}, nil
	}

	// t1 <: t1 | u when t2 is a union and t1 is not.
	if _, ok := t1.(TUnion); !ok {
		if union, ok := t2.(TUnion); ok {
			if tv, isVar := t1.(TVar); isVar {
				return Bind(tv, union)
			}
			return nil, errUnifyMsg(t1, t2, "cannot narrow union to member")
		}
	}

	switch t1 := t1.(type) {
	case TVar:
		return Bind(t1, t2)
	case TApp:
		switch t2 := t2.(type) {
		case TVar:
			return Bind(t2, t1)
		case TApp:
			// Generic constructor: F<A> against Result<String, E> binds F to the
			// partial application Result<String>.
			if t1Var, ok := t1.Constructor.(TVar); ok && len(t1.Args) <= len(t2.Args) {
				numExtra := len(t2.Args) - len(t1.Args)
				var partialType Type = t2.Constructor
				if numExtra > 0 {
					partialType = TApp{Constructor: t2.Constructor, Args: t2.Args[:numExtra]}
				}
				s1, err := Bind(t1Var, partialType)
				if err != nil {
					return nil, err
				}
				for i := 0; i < len(t1.Args); i++ {
					s2, err := unifyInternal(t1.Args[i].Apply(s1), t2.Args[numExtra+i].Apply(s1), false, visited)
					if err != nil {
						return nil, err
					}
					s1 = s1.Compose(s2)
				}
				return s1, nil
			}

			s1, err := unifyInternal(t1.Constructor, t2.Constructor, false, visited)
			if err != nil {
				return nil, err
			}
			if len(t1.Args) != len(t2.Args) {
				return nil, errMismatch(fmt.Sprintf("type arguments length mismatch: %d vs %d", len(t1.Args), len(t2.Args)))
			}
			for i := 0; i < len(t1.Args); i++ {
				s2, err := unifyInternal(t1.Args[i].Apply(s1), t2.Args[i].Apply(s1), false, visited)
				if err != nil {
					return nil, err
				}
				s1 = s1.Compose(s2)
			}
			return s1, nil
		default:
			return nil, errUnify(t1, t2)
		}
	case TCon:
		switch t2 := t2.(type) {
		case TVar:
			return Bind(t2, t1)
		case TCon:
			if t1.Name == t2.Name && t1.Module == t2.Module {
				return Subst{}, nil
			}
			return nil, errUnifyMsg(t1, t2, "type constant mismatch")
		default:
			return nil, errUnify(t1, t2)
		}
	case TTuple:
		switch t2 := t2.(type) {
		case TVar:
			return Bind(t2, t1)
		case TTuple:
			if len(t1.Elements) != len(t2.Elements) {
				return nil, errMismatch(fmt.Sprintf("tuple length mismatch: %d vs %d", len(t1.Elements), len(t2.Elements)))
			}
			s1 := Subst{}
			for i := 0; i < len(t1.Elements); i++ {
				s2, err := unifyInternal(t1.Elements[i].Apply(s1), t2.Elements[i].Apply(s1), allowExtra, visited)
				if err != nil {
					return nil, err
				}
				s1 = s1.Compose(s2)
			}
			return s1, nil
		default:
			return nil, errUnifyMsg(t1, t2, "cannot unify tuple")
		}
	case TRecord:
		switch t2 := t2.(type) {
		case TVar:
			return Bind(t2, t1)
		case TRecord:
			s1 := Subst{}
			for _, k := range t1.fieldNames() {
				v2, ok := t2.Fields[k]
				if !ok {
					// t2 is Actual, t1 is Expected: a missing member is always an error.
					return nil, errMismatch(fmt.Sprintf("record missing field: %s", k))
				}
				s2, err := unifyInternal(t1.Fields[k].Apply(s1), v2.Apply(s1), false, visited) // strict
				if err != nil {
					return nil, errUnifyContext(fmt.Sprintf("record field '%s'", k), err)
				}
				s1 = s1.Compose(s2)
			}
			if !allowExtra && len(t2.Fields) != len(t1.Fields) {
				return nil, errMismatch(fmt.Sprintf("record has extra fields: %s", t2))
			}
			return s1, nil
		default:
			return nil, errUnifyMsg(t1, t2, "cannot unify record")
		}
	case TUnion:
		switch t2 := t2.(type) {
		case TVar:
			return Bind(t2, t1)
		case TUnion:
			if len(t1.Types) != len(t2.Types) {
				return nil, errMismatch(fmt.Sprintf("union type mismatch: %d vs %d members", len(t1.Types), len(t2.Types)))
			}
			// Since types are normalized (sorted), we can compare pairwise
			s := Subst{}
			for i := range t1.Types {
				s2, err := unifyInternal(t1.Types[i].Apply(s), t2.Types[i].Apply(s), allowExtra, visited)
				if err != nil {
					return nil, errUnifyContext("union member", err)
				}
				s = s.Compose(s2)
			}
			return s, nil
		default:
			// Check if t2 is a member of the union t1 (subtyping: T <: T | U)
			for _, member := range t1.Types {
				if s, err := unifyInternal(member, t2, allowExtra, visited); err == nil {
					return s, nil
				}
			}
			return nil, errUnifyMsg(t1, t2, "cannot unify union")
		}
	case TFunc:
		switch t2 := t2.(type) {
		case TVar:
			return Bind(t2, t1)
		case TFunc:
			if t1.IsVariadic != t2.IsVariadic {
				return nil, errMismatch("cannot unify variadic function with non-variadic")
			}
			if len(t1.Params) != len(t2.Params) {
				return nil, errMismatch(fmt.Sprintf("function parameter count mismatch: %d vs %d", len(t1.Params), len(t2.Params)))
			}
			s1 := Subst{}
			for i := 0; i < len(t1.Params); i++ {
				s2, err := unifyInternal(t1.Params[i].Apply(s1), t2.Params[i].Apply(s1), false, visited)
				if err != nil {
					return nil, err
				}
				s1 = s1.Compose(s2)
			}
			if t1.ReturnType == nil || t2.ReturnType == nil {
				if t1.ReturnType != nil || t2.ReturnType != nil {
					return nil, errMismatch("function return type mismatch")
				}
				return s1, nil
			}
			// Return type is Covariant.
			s3, err := unifyInternal(t1.ReturnType.Apply(s1), t2.ReturnType.Apply(s1), allowExtra, visited)
			if err != nil {
				return nil, err
			}
			return s1.Compose(s3), nil
		default:
			return nil, errUnifyMsg(t1, t2, "cannot unify function type")
		}
	default:
		return nil, errMismatch(fmt.Sprintf("unknown type kind: %T", t1))
	}
}

// Bind binds a type variable to a type, performing the occurs check.
func Bind(tv TVar, t Type) (Subst, error) {
	if tVal, ok := t.(TVar); ok && tVal.Name == tv.Name {
		return Subst{}, nil
	}

	// Occurs check: ensure tv does not appear in t (to avoid infinite types like a = List a)
	if OccursCheck(tv, t) {
		return nil, errMismatch(fmt.Sprintf("infinite type detected: %s in %s", tv, t))
	}

	return Subst{tv.Name: t}, nil
}

// OccursCheck returns true if tv appears free in t.
func OccursCheck(tv TVar, t Type) bool {
	for _, v := range t.FreeTypeVariables() {
		if v.Name == tv.Name {
			return true
		}
	}
	return false
}

func errUnify(t1, t2 Type) error {
	return fmt.Errorf("cannot unify %s with %s", t1, t2)
}

func errUnifyMsg(t1, t2 Type, msg string) error {
	return fmt.Errorf("%s: %s vs %s", msg, t1, t2)
}

func errMismatch(msg string) error {
	return fmt.Errorf("type mismatch: %s", msg)
}

func errUnifyContext(ctx string, err error) error {
	return fmt.Errorf("in %s: %w", ctx, err)
}
