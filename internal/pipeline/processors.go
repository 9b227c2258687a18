package pipeline

import (
	"errors"

	"github.com/funvibe/dcolon/internal/diagnostics"
	"github.com/funvibe/dcolon/internal/manifest"
	"github.com/funvibe/dcolon/internal/resolver"
	"github.com/funvibe/dcolon/internal/symbols"
	"github.com/funvibe/dcolon/internal/typesystem"
)

// LoadProcessor parses the unit manifest from the context source.
type LoadProcessor struct{}

func (lp *LoadProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Manifest != nil {
		return ctx
	}
	m, err := manifest.Parse(ctx.Source, ctx.FilePath)
	if err != nil {
		ctx.Errors = append(ctx.Errors, asDiagnostic(err, ctx.FilePath))
		return ctx
	}
	ctx.Manifest = m
	ctx.Logger.Debug().Str("unit", m.Unit).Str("fingerprint", m.Fingerprint).Msg("manifest loaded")
	return ctx
}

// DeclareProcessor walks the manifest body the way a front end walks a
// program: it enters and exits scopes, registers declarations and imports,
// and records call sites with their innermost scope. Declarations are
// visible to every call site of their scope regardless of position.
type DeclareProcessor struct{}

func (dp *DeclareProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Manifest == nil || ctx.Fatal() {
		return ctx
	}

	tree := symbols.NewScopeTree()
	registry := symbols.NewRegistry(tree, typesystem.NewMatcher(ctx.Manifest.Universe()))
	w := &declWalker{ctx: ctx, tree: tree, registry: registry}

	if err := w.body(ctx.Manifest.Body); err != nil {
		ctx.Errors = append(ctx.Errors, asDiagnostic(err, ctx.FilePath))
		return ctx
	}
	if err := tree.Close(); err != nil {
		ctx.Errors = append(ctx.Errors, asDiagnostic(err, ctx.FilePath))
		return ctx
	}

	ctx.Tree = tree
	ctx.Registry = registry
	ctx.Sites = w.sites
	ctx.Logger.Debug().Str("unit", ctx.Manifest.Unit).Int("scopes", tree.Len()).
		Int("declarations", registry.Len()).Int("calls", len(w.sites)).Msg("unit declared")
	return ctx
}

type declWalker struct {
	ctx      *PipelineContext
	tree     *symbols.ScopeTree
	registry *symbols.Registry
	sites    []resolver.CallSite
}

func (w *declWalker) body(items []manifest.Item) error {
	for i := range items {
		if err := w.item(&items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (w *declWalker) item(it *manifest.Item) error {
	pos := it.Position(w.ctx.FilePath)
	scope := w.tree.Current().ID

	switch it.Kind() {
	case manifest.KindExtend:
		_, err := w.registry.Declare(scope, it.TargetType, it.Method, it.SignatureType, pos)
		return err

	case manifest.KindImport:
		exports := w.exports(it.Import)
		_, err := w.registry.Import(scope, it.Import, exports, pos)
		return err

	case manifest.KindCall:
		w.sites = append(w.sites, resolver.CallSite{
			ID:       it.Call,
			Receiver: it.ReceiverType,
			Method:   it.Method,
			Scope:    scope,
			Pos:      pos,
		})
		return nil

	case manifest.KindBlock:
		return w.tree.WithScope(it.Block.ScopeKind, func(*symbols.ScopeNode) error {
			return w.body(it.Block.Body)
		})
	}
	return diagnostics.NewErrorf(diagnostics.ErrR005, pos, "unsupported item")
}

func (w *declWalker) exports(module string) []*symbols.Declaration {
	items := w.ctx.Manifest.Modules[module]
	decls := make([]*symbols.Declaration, 0, len(items))
	for i := range items {
		decls = append(decls, &symbols.Declaration{
			Target:    items[i].TargetType,
			Method:    items[i].Method,
			Signature: items[i].SignatureType,
			Pos:       items[i].Position(w.ctx.FilePath),
		})
	}
	return decls
}

func asDiagnostic(err error, file string) *diagnostics.DiagnosticError {
	var diag *diagnostics.DiagnosticError
	if errors.As(err, &diag) {
		return diag
	}
	return diagnostics.NewError(diagnostics.ErrR005, diagnostics.Position{File: file}, "invalid unit").Wrap(err)
}
