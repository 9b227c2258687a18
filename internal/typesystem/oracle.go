package typesystem

import (
	"fmt"
	"sort"
)

// Oracle answers the compatibility questions that belong to the host type
// checker. The resolver never derives subtyping on its own.
type Oracle interface {
	// ShapeOf returns the structural shape (members) of a receiver type.
	ShapeOf(t Type) (TRecord, bool)
	// IsSubtype reports whether sub is declared to extend or implement super.
	IsSubtype(sub, super Type) bool
}

// NominalDef describes one nominal type known to the host.
type NominalDef struct {
	Name       string
	Params     []string // Type parameter names for generic types (List<t>)
	Shape      TRecord  // Members; a nil Fields map means no known members
	Supertypes []Type   // Declared supertypes/interfaces; may mention Params
}

// Universe is a table-driven Oracle built from nominal definitions.
// It is the default oracle used by the manifest front end and tests.
type Universe struct {
	defs map[string]NominalDef
}

func NewUniverse() *Universe {
	return &Universe{defs: make(map[string]NominalDef)}
}

// Define adds a nominal type. Redefinition is an error.
func (u *Universe) Define(def NominalDef) error {
	if def.Name == "" {
		return fmt.Errorf("nominal type without a name")
	}
	if _, ok := u.defs[def.Name]; ok {
		return fmt.Errorf("type %s defined twice", def.Name)
	}
	u.defs[def.Name] = def
	return nil
}

// Lookup returns the definition of a nominal type by its qualified name.
func (u *Universe) Lookup(name string) (NominalDef, bool) {
	def, ok := u.defs[name]
	return def, ok
}

// Names returns all defined type names, sorted.
func (u *Universe) Names() []string {
	names := make([]string, 0, len(u.defs))
	for name := range u.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// instantiate returns the definition for t with its type parameters
// substituted by t's arguments.
func (u *Universe) instantiate(t Type) (NominalDef, Subst, bool) {
	var (
		con  TCon
		args []Type
	)
	switch tt := t.(type) {
	case TCon:
		con = tt
	case TApp:
		c, ok := tt.Constructor.(TCon)
		if !ok {
			return NominalDef{}, nil, false
		}
		con, args = c, tt.Args
	default:
		return NominalDef{}, nil, false
	}

	def, ok := u.defs[con.String()]
	if !ok {
		return NominalDef{}, nil, false
	}
	subst := make(Subst)
	for i, p := range def.Params {
		if i < len(args) {
			subst[p] = args[i]
		}
	}
	return def, subst, true
}

func (u *Universe) ShapeOf(t Type) (TRecord, bool) {
	if rec, ok := t.(TRecord); ok {
		return rec, true
	}
	def, subst, ok := u.instantiate(t)
	if !ok || def.Shape.Fields == nil {
		return TRecord{}, false
	}
	if len(subst) == 0 {
		return def.Shape, true
	}
	shape, ok := def.Shape.Apply(subst).(TRecord)
	return shape, ok
}

func (u *Universe) IsSubtype(sub, super Type) bool {
	target := Key(super)
	visited := map[string]bool{}
	queue := []Type{sub}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		key := Key(cur)
		if visited[key] {
			continue
		}
		visited[key] = true

		def, subst, ok := u.instantiate(cur)
		if !ok {
			continue
		}
		for _, st := range def.Supertypes {
			if len(subst) > 0 {
				st = st.Apply(subst)
			}
			if Key(st) == target {
				return true
			}
			queue = append(queue, st)
		}
	}
	return false
}
