package resolver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/funvibe/dcolon/internal/symbols"
)

// Unit is one compilation unit ready for resolution: its own registry
// and its call sites in source order.
type Unit struct {
	Name     string
	Registry *symbols.Registry
	Sites    []CallSite
}

// ResolveUnits resolves independent units concurrently, at most parallel
// at a time (parallel <= 0 means one per unit). Each unit gets its own
// Resolver; nothing is shared between them. Cancelling ctx stops
// scheduling further units but never interrupts a unit in progress.
func ResolveUnits(ctx context.Context, units []Unit, parallel int, opts ...Option) ([]*Result, error) {
	results := make([]*Result, len(units))
	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}

	for i, unit := range units {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := New(unit.Registry, opts...).ResolveAll(unit.Sites)
			res.Unit = unit.Name
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	// Scheduling may have stopped before any goroutine observed the cancellation.
	return results, ctx.Err()
}
