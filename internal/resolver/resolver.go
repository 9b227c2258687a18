package resolver

import (
	"github.com/rs/zerolog"

	"github.com/funvibe/dcolon/internal/diagnostics"
	"github.com/funvibe/dcolon/internal/symbols"
	"github.com/funvibe/dcolon/internal/typesystem"
)

// Resolver binds call sites against one unit's registry.
// It never mutates the registry or the scope tree.
type Resolver struct {
	registry *symbols.Registry
	logger   zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for per-site debug and warning events.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a resolver over registry.
func New(registry *symbols.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		registry: registry,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type rank struct {
	distance int
	match    typesystem.MatchKind
	order    int
}

// outranks reports whether a beats b: nearer scope, then stronger match,
// then later declaration.
func (a rank) outranks(b rank) bool {
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	if a.match != b.match {
		return a.match > b.match
	}
	return a.order > b.order
}

func rankOf(c symbols.Candidate) rank {
	return rank{distance: c.Distance, match: c.Match, order: c.Decl.Order}
}

// Resolve produces the binding for site. Unresolved and Ambiguous
// bindings come with a diagnostic; the binding is returned either way.
func (r *Resolver) Resolve(site CallSite) (Binding, *diagnostics.DiagnosticError) {
	candidates := r.registry.Lookup(site.Receiver, site.Method, site.Scope)

	if len(candidates) == 0 {
		err := diagnostics.NewErrorf(diagnostics.ErrR003, site.Pos,
			"no extension method `%s` in scope for type %s", site.Method, site.Receiver)
		err.CallSite = site.ID
		err.Receiver = typeString(site.Receiver)
		r.logger.Warn().Str("site", site.ID).Str("method", site.Method).
			Str("receiver", err.Receiver).Msg("unresolved extension call")
		return Binding{Kind: Unresolved}, err
	}

	best := rankOf(candidates[0])
	for _, c := range candidates[1:] {
		if rk := rankOf(c); rk.outranks(best) {
			best = rk
		}
	}

	var top []symbols.Candidate
	for _, c := range candidates {
		if rankOf(c) == best {
			top = append(top, c)
		}
	}

	if len(top) > 1 {
		err := diagnostics.NewErrorf(diagnostics.ErrR004, site.Pos,
			"call to `%s` on type %s is ambiguous between %d %s extensions",
			site.Method, site.Receiver, len(top), best.match)
		err.CallSite = site.ID
		err.Receiver = typeString(site.Receiver)
		for _, c := range top {
			err.Candidates = append(err.Candidates, c.Decl.Ref())
		}
		r.logger.Warn().Str("site", site.ID).Str("method", site.Method).
			Strs("candidates", err.Candidates).Msg("ambiguous extension call")
		return Binding{Kind: Ambiguous, Match: best.match, Distance: best.distance, Candidates: top}, err
	}

	winner := top[0]
	r.logger.Debug().Str("site", site.ID).Str("decl", winner.Decl.Ref()).
		Stringer("match", winner.Match).Int("distance", winner.Distance).Msg("resolved extension call")
	return Binding{Kind: Resolved, Decl: winner.Decl, Match: winner.Match, Distance: winner.Distance}, nil
}

func typeString(t typesystem.Type) string {
	if t == nil {
		return "<unknown>"
	}
	return t.String()
}

// Result collects the bindings of one resolution pass in call-site order.
type Result struct {
	Unit        string
	Sites       []CallSite
	Bindings    map[string]Binding
	Diagnostics []*diagnostics.DiagnosticError
}

// Binding returns the binding for the call site with the given ID.
func (res *Result) Binding(id string) (Binding, bool) {
	b, ok := res.Bindings[id]
	return b, ok
}

// HasErrors reports whether any call site failed to resolve.
func (res *Result) HasErrors() bool { return len(res.Diagnostics) > 0 }

// Counts tallies bindings by kind.
func (res *Result) Counts() map[BindingKind]int {
	counts := make(map[BindingKind]int, 3)
	for _, b := range res.Bindings {
		counts[b.Kind]++
	}
	return counts
}

// ResolveAll seals the registry and resolves every site. Failures are
// accumulated per call site rather than aborting the pass.
func (r *Resolver) ResolveAll(sites []CallSite) *Result {
	r.registry.Seal()
	res := &Result{
		Sites:    sites,
		Bindings: make(map[string]Binding, len(sites)),
	}
	for _, site := range sites {
		b, err := r.Resolve(site)
		res.Bindings[site.ID] = b
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, err)
		}
	}
	return res
}
