package pipeline

import (
	"github.com/rs/zerolog"

	"github.com/funvibe/dcolon/internal/diagnostics"
	"github.com/funvibe/dcolon/internal/manifest"
	"github.com/funvibe/dcolon/internal/resolver"
	"github.com/funvibe/dcolon/internal/symbols"
)

// PipelineContext carries one unit through the pipeline stages.
type PipelineContext struct {
	Source   []byte
	FilePath string
	Logger   zerolog.Logger

	Manifest *manifest.Manifest
	Tree     *symbols.ScopeTree
	Registry *symbols.Registry
	Sites    []resolver.CallSite
	Result   *resolver.Result

	Errors []*diagnostics.DiagnosticError
}

func NewPipelineContext(source []byte, filePath string) *PipelineContext {
	return &PipelineContext{
		Source:   source,
		FilePath: filePath,
		Logger:   zerolog.Nop(),
	}
}

// Fatal reports whether a structural error stopped the unit before resolution.
func (ctx *PipelineContext) Fatal() bool {
	for _, err := range ctx.Errors {
		if err.Code.Fatal() {
			return true
		}
	}
	return false
}

// Declared reports whether the unit is ready for resolution.
func (ctx *PipelineContext) Declared() bool {
	return ctx.Registry != nil && !ctx.Fatal()
}

// UnitName returns the manifest's unit name, or the file path before loading.
func (ctx *PipelineContext) UnitName() string {
	if ctx.Manifest != nil {
		return ctx.Manifest.Unit
	}
	return ctx.FilePath
}

// Unit packages the declared registry and call sites for the resolver.
func (ctx *PipelineContext) Unit() resolver.Unit {
	return resolver.Unit{Name: ctx.UnitName(), Registry: ctx.Registry, Sites: ctx.Sites}
}
