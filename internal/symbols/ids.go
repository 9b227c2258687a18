package symbols

// ScopeID identifies a scope in the scope tree arena.
type ScopeID uint32

const (
	// NoScopeID marks the absence of a scope reference.
	NoScopeID ScopeID = 0
)

// IsValid reports whether the scope ID refers to an allocated scope.
func (id ScopeID) IsValid() bool { return id != NoScopeID }

// DeclID identifies an extension declaration inside a registry.
type DeclID uint32

const (
	// NoDeclID marks the absence of a declaration reference.
	NoDeclID DeclID = 0
)

// IsValid reports whether the declaration ID refers to a registered declaration.
func (id DeclID) IsValid() bool { return id != NoDeclID }
