package symbols

import (
	"errors"
	"fmt"
	"sort"

	"github.com/funvibe/dcolon/internal/diagnostics"
	"github.com/funvibe/dcolon/internal/typesystem"
)

// ErrRegistrySealed is returned when declarations are added after resolution started.
var ErrRegistrySealed = errors.New("extension registry is sealed")

// Declaration is one `Target::method` extension. Declarations are
// immutable once registered.
type Declaration struct {
	ID        DeclID
	Target    typesystem.Type
	Method    string
	Signature typesystem.Type // optional; carried through to bindings
	Scope     ScopeID
	Order     int // lexical declaration order; later declarations win ties
	Pos       diagnostics.Position
	Origin    string // module the declaration was imported from, empty when local
}

func (d *Declaration) String() string {
	return fmt.Sprintf("%s::%s", d.Target, d.Method)
}

// Ref is a stable reference to the implementation, used in reports and storage.
func (d *Declaration) Ref() string {
	ref := fmt.Sprintf("%s#%d", d.String(), d.ID)
	if d.Origin != "" {
		ref = d.Origin + "/" + ref
	}
	return ref
}

// Candidate is a visible declaration applicable to a particular receiver.
type Candidate struct {
	Decl     *Declaration
	Distance int // scope hops from the call site to the declaring scope
	Match    typesystem.MatchKind
}

type declKey struct {
	target string
	method string
	scope  ScopeID
}

// Registry records extension declarations against the scope tree.
type Registry struct {
	tree    *ScopeTree
	matcher *typesystem.Matcher

	decls     []*Declaration
	keys      map[declKey]*Declaration
	byScope   map[ScopeID]map[string][]*Declaration
	lastOrder int
	sealed    bool
}

// NewRegistry creates an empty registry over tree. A nil matcher matches
// without an oracle.
func NewRegistry(tree *ScopeTree, matcher *typesystem.Matcher) *Registry {
	if matcher == nil {
		matcher = typesystem.NewMatcher(nil)
	}
	return &Registry{
		tree:    tree,
		matcher: matcher,
		keys:    make(map[declKey]*Declaration),
		byScope: make(map[ScopeID]map[string][]*Declaration),
	}
}

// Tree returns the scope tree the registry declares into.
func (r *Registry) Tree() *ScopeTree { return r.tree }

// Matcher returns the type matcher used by Lookup.
func (r *Registry) Matcher() *typesystem.Matcher { return r.matcher }

// Seal freezes the registry. Lookups stay valid; registration fails.
func (r *Registry) Seal() { r.sealed = true }

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool { return r.sealed }

// Len returns the number of registered declarations.
func (r *Registry) Len() int { return len(r.decls) }

// NextOrder returns the order the next auto-ordered declaration receives.
func (r *Registry) NextOrder() int { return r.lastOrder + 1 }

// Register records decl. A zero Order is assigned automatically.
// Two declarations of the same method for the same target type in the
// same scope are a duplicate; declarations into an exited scope are an
// imbalance.
func (r *Registry) Register(decl *Declaration) error {
	if r.sealed {
		return ErrRegistrySealed
	}
	if decl == nil || decl.Target == nil {
		return fmt.Errorf("declaration without a target type")
	}
	if decl.Method == "" {
		return fmt.Errorf("declaration of %s without a method name", decl.Target)
	}

	node, ok := r.tree.Scope(decl.Scope)
	if !ok {
		return fmt.Errorf("declaration %s into unknown scope %d", decl, decl.Scope)
	}
	if !node.IsOpen() {
		return diagnostics.NewErrorf(diagnostics.ErrR002, decl.Pos,
			"declaration %s into %s scope %d after it was exited", decl, node.Kind, node.ID)
	}

	key := declKey{target: typesystem.Key(decl.Target), method: decl.Method, scope: decl.Scope}
	if prev, exists := r.keys[key]; exists {
		err := diagnostics.NewErrorf(diagnostics.ErrR001, decl.Pos,
			"extension %s already declared in this scope at %s", decl, prev.Pos)
		err.Candidates = []string{prev.Ref()}
		return err
	}

	if decl.Order == 0 {
		decl.Order = r.NextOrder()
	}
	if decl.Order > r.lastOrder {
		r.lastOrder = decl.Order
	}
	decl.ID = DeclID(len(r.decls) + 1)

	r.decls = append(r.decls, decl)
	r.keys[key] = decl
	methods := r.byScope[decl.Scope]
	if methods == nil {
		methods = make(map[string][]*Declaration)
		r.byScope[decl.Scope] = methods
	}
	methods[decl.Method] = append(methods[decl.Method], decl)
	node.decls = append(node.decls, decl)
	return nil
}

// Declare registers a local extension with the next declaration order.
func (r *Registry) Declare(scope ScopeID, target typesystem.Type, method string, signature typesystem.Type, pos diagnostics.Position) (*Declaration, error) {
	decl := &Declaration{
		Target:    target,
		Method:    method,
		Signature: signature,
		Scope:     scope,
		Pos:       pos,
	}
	if err := r.Register(decl); err != nil {
		return nil, err
	}
	return decl, nil
}

// Import copies exported declarations into scope. All copies share a single
// declaration order, so conflicting imports of equal rank stay ambiguous
// instead of one silently winning. Registration stops at the first error.
func (r *Registry) Import(scope ScopeID, origin string, exports []*Declaration, pos diagnostics.Position) ([]*Declaration, error) {
	order := r.NextOrder()
	imported := make([]*Declaration, 0, len(exports))
	for _, exp := range exports {
		decl := &Declaration{
			Target:    exp.Target,
			Method:    exp.Method,
			Signature: exp.Signature,
			Scope:     scope,
			Order:     order,
			Pos:       pos,
			Origin:    origin,
		}
		if err := r.Register(decl); err != nil {
			return imported, err
		}
		imported = append(imported, decl)
	}
	return imported, nil
}

// Get returns the declaration with the given ID.
func (r *Registry) Get(id DeclID) (*Declaration, bool) {
	if !id.IsValid() || int(id) > len(r.decls) {
		return nil, false
	}
	return r.decls[id-1], true
}

// Declarations returns every declaration in registration order.
func (r *Registry) Declarations() []*Declaration {
	out := make([]*Declaration, len(r.decls))
	copy(out, r.decls)
	return out
}

// Lookup collects the declarations of method visible from scope whose
// target accepts receiver. Candidates are ordered nearest scope first,
// then by descending declaration order.
func (r *Registry) Lookup(receiver typesystem.Type, method string, from ScopeID) []Candidate {
	var out []Candidate
	for distance, node := range r.tree.VisibleChain(from) {
		decls := r.byScope[node.ID][method]
		start := len(out)
		for _, decl := range decls {
			kind := r.matcher.Match(receiver, decl.Target)
			if kind == typesystem.MatchNone {
				continue
			}
			out = append(out, Candidate{Decl: decl, Distance: distance, Match: kind})
		}
		level := out[start:]
		sort.SliceStable(level, func(i, j int) bool {
			return level[i].Decl.Order > level[j].Decl.Order
		})
	}
	return out
}

// Visible reports every declaration of method visible from scope,
// regardless of receiver compatibility. Used for diagnostics.
func (r *Registry) Visible(method string, from ScopeID) []*Declaration {
	var out []*Declaration
	for _, node := range r.tree.VisibleChain(from) {
		out = append(out, r.byScope[node.ID][method]...)
	}
	return out
}
