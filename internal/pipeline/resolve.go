package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/funvibe/dcolon/internal/resolver"
)

// Resolve runs the resolution stage for every declared context, at most
// parallel units at a time. Contexts that failed to load or declare are
// left untouched. Each result and its per-site diagnostics are stored
// back on its context.
func Resolve(ctx context.Context, contexts []*PipelineContext, parallel int, logger zerolog.Logger) error {
	var (
		units []resolver.Unit
		owner []*PipelineContext
	)
	for _, pc := range contexts {
		if !pc.Declared() {
			continue
		}
		units = append(units, pc.Unit())
		owner = append(owner, pc)
	}

	results, err := resolver.ResolveUnits(ctx, units, parallel, resolver.WithLogger(logger))
	for i, res := range results {
		if res == nil {
			continue
		}
		pc := owner[i]
		pc.Result = res
		pc.Errors = append(pc.Errors, res.Diagnostics...)
	}
	return err
}
