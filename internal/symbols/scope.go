package symbols

import (
	"github.com/funvibe/dcolon/internal/diagnostics"
)

// ScopeKind enumerates supported scope categories.
type ScopeKind uint8

const (
	ScopeInvalid  ScopeKind = iota
	ScopeModule             // module-level (top-level declarations and imports)
	ScopeFunction           // function body scope
	ScopeBlock              // generic block scope
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeModule:
		return "module"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	default:
		return "invalid"
	}
}

// ParseScopeKind maps a kind name back to its ScopeKind.
func ParseScopeKind(name string) (ScopeKind, bool) {
	switch name {
	case "module":
		return ScopeModule, true
	case "function":
		return ScopeFunction, true
	case "block", "":
		return ScopeBlock, true
	default:
		return ScopeInvalid, false
	}
}

// ScopeNode models a lexical scope. Nodes are owned by their ScopeTree;
// Parent is a non-owning back reference used only for outward lookup.
type ScopeNode struct {
	ID     ScopeID
	Kind   ScopeKind
	Parent ScopeID
	Depth  int // 0 for the module root

	children []ScopeID
	decls    []*Declaration // append-only while open
	open     bool
}

// IsOpen reports whether the scope is still being walked by the front end.
func (n *ScopeNode) IsOpen() bool { return n.open }

// Children returns the IDs of the nested scopes in creation order.
func (n *ScopeNode) Children() []ScopeID {
	out := make([]ScopeID, len(n.children))
	copy(out, n.children)
	return out
}

// Declarations returns the extensions declared or imported directly in this scope.
func (n *ScopeNode) Declarations() []*Declaration {
	out := make([]*Declaration, len(n.decls))
	copy(out, n.decls)
	return out
}

// ScopeTree is an arena of scopes with a stack of currently open ones.
// Entry and exit are strictly nested.
type ScopeTree struct {
	nodes []*ScopeNode // index 0 is unused so that NoScopeID never resolves
	stack []ScopeID
}

// NewScopeTree creates a tree whose module root is already open.
func NewScopeTree() *ScopeTree {
	t := &ScopeTree{nodes: []*ScopeNode{nil}}
	root := t.alloc(ScopeModule, NoScopeID)
	t.stack = append(t.stack, root.ID)
	return t
}

func (t *ScopeTree) alloc(kind ScopeKind, parent ScopeID) *ScopeNode {
	node := &ScopeNode{
		ID:     ScopeID(len(t.nodes)),
		Kind:   kind,
		Parent: parent,
		open:   true,
	}
	if p, ok := t.Scope(parent); ok {
		node.Depth = p.Depth + 1
		p.children = append(p.children, node.ID)
	}
	t.nodes = append(t.nodes, node)
	return node
}

// Root returns the module scope.
func (t *ScopeTree) Root() *ScopeNode { return t.nodes[1] }

// Len returns the number of scopes ever entered, the root included.
func (t *ScopeTree) Len() int { return len(t.nodes) - 1 }

// Scope resolves an ID. Exited scopes stay resolvable for diagnostics.
func (t *ScopeTree) Scope(id ScopeID) (*ScopeNode, bool) {
	if !id.IsValid() || int(id) >= len(t.nodes) {
		return nil, false
	}
	return t.nodes[id], true
}

// Current returns the innermost open scope, or nil once the root is closed.
func (t *ScopeTree) Current() *ScopeNode {
	if len(t.stack) == 0 {
		return nil
	}
	return t.nodes[t.stack[len(t.stack)-1]]
}

// EnterScope opens a new scope nested in the current one.
func (t *ScopeTree) EnterScope(kind ScopeKind) (*ScopeNode, error) {
	cur := t.Current()
	if cur == nil {
		return nil, diagnostics.NewErrorf(diagnostics.ErrR002, diagnostics.Position{},
			"enter of %s scope after the module scope was closed", kind)
	}
	node := t.alloc(kind, cur.ID)
	t.stack = append(t.stack, node.ID)
	return node, nil
}

// ExitScope closes the innermost scope. The module root is closed with
// Close, so exiting with only the root open is an imbalance.
func (t *ScopeTree) ExitScope() error {
	if len(t.stack) <= 1 {
		return diagnostics.NewError(diagnostics.ErrR002, diagnostics.Position{},
			"exit of scope without a matching enter")
	}
	t.pop()
	return nil
}

// Close closes the module root. Every nested scope must already be exited.
func (t *ScopeTree) Close() error {
	switch {
	case len(t.stack) == 0:
		return diagnostics.NewError(diagnostics.ErrR002, diagnostics.Position{},
			"module scope closed twice")
	case len(t.stack) > 1:
		return diagnostics.NewErrorf(diagnostics.ErrR002, diagnostics.Position{},
			"module scope closed with %d nested scope(s) still open", len(t.stack)-1)
	}
	t.pop()
	return nil
}

func (t *ScopeTree) pop() {
	id := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	t.nodes[id].open = false
}

// WithScope runs fn inside a fresh scope and exits it on every path,
// including errors and panics from fn. A scope left open by fn is an
// imbalance; the stack is still unwound back past the scope.
func (t *ScopeTree) WithScope(kind ScopeKind, fn func(*ScopeNode) error) (err error) {
	node, err := t.EnterScope(kind)
	if err != nil {
		return err
	}
	defer func() {
		if exitErr := t.exitTo(node.ID); exitErr != nil && err == nil {
			err = exitErr
		}
	}()
	return fn(node)
}

func (t *ScopeTree) exitTo(id ScopeID) error {
	leaked := 0
	for len(t.stack) > 1 {
		top := t.stack[len(t.stack)-1]
		t.pop()
		if top == id {
			if leaked > 0 {
				return diagnostics.NewErrorf(diagnostics.ErrR002, diagnostics.Position{},
					"%d nested scope(s) left open inside scope %d", leaked, id)
			}
			return nil
		}
		leaked++
	}
	return diagnostics.NewErrorf(diagnostics.ErrR002, diagnostics.Position{},
		"scope %d is not open", id)
}

// VisibleChain returns the scope and all its ancestors, nearest first,
// ending at the module root.
func (t *ScopeTree) VisibleChain(id ScopeID) []*ScopeNode {
	var chain []*ScopeNode
	for cur, ok := t.Scope(id); ok; cur, ok = t.Scope(cur.Parent) {
		chain = append(chain, cur)
	}
	return chain
}

// Encloses reports whether inner lies within outer's lexical range
// (a scope encloses itself).
func (t *ScopeTree) Encloses(outer, inner ScopeID) bool {
	for cur, ok := t.Scope(inner); ok; cur, ok = t.Scope(cur.Parent) {
		if cur.ID == outer {
			return true
		}
	}
	return false
}
