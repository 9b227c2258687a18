package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/dcolon/internal/diagnostics"
	"github.com/funvibe/dcolon/internal/resolver"
	"github.com/funvibe/dcolon/internal/typesystem"
)

func loadShapes(t *testing.T) *PipelineContext {
	t.Helper()
	path := filepath.Join("..", "manifest", "testdata", "shapes.yaml")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return NewPipelineContext(data, path)
}

func TestFrontendDeclaresUnit(t *testing.T) {
	pc := Frontend().Run(loadShapes(t))
	require.Empty(t, pc.Errors)
	require.True(t, pc.Declared())

	assert.Equal(t, "shapes", pc.UnitName())
	assert.Equal(t, 8, pc.Registry.Len())
	assert.Equal(t, 5, pc.Tree.Len())
	assert.Len(t, pc.Sites, 9)
	assert.Nil(t, pc.Tree.Current(), "module scope must be closed after declaring")

	root := pc.Tree.Root().ID
	for _, site := range pc.Sites {
		switch site.ID {
		case "outer-test", "rect-area", "circle-area", "outside-number":
			assert.Equal(t, root, site.Scope, site.ID)
		default:
			assert.NotEqual(t, root, site.Scope, site.ID)
		}
	}
}

func TestResolveShapes(t *testing.T) {
	pc := Frontend().Run(loadShapes(t))
	require.NoError(t, Resolve(context.Background(), []*PipelineContext{pc}, 2, zerolog.Nop()))
	require.NotNil(t, pc.Result)
	assert.Equal(t, "shapes", pc.Result.Unit)

	want := map[string]struct {
		kind  resolver.BindingKind
		ref   string
		match typesystem.MatchKind
	}{
		"outer-test":     {resolver.Resolved, "String::test#1", typesystem.MatchExact},
		"inner-test":     {resolver.Resolved, "String::test#4", typesystem.MatchExact},
		"rect-area":      {resolver.Resolved, "Rectangle::area#3", typesystem.MatchExact},
		"circle-area":    {resolver.Resolved, "{ test: () -> String }::area#2", typesystem.MatchStructural},
		"first-number":   {resolver.Resolved, "Number::test#5", typesystem.MatchExact},
		"second-number":  {resolver.Resolved, "Number::test#6", typesystem.MatchExact},
		"outside-number": {kind: resolver.Unresolved},
		"show-number":    {kind: resolver.Ambiguous, match: typesystem.MatchGeneric},
		"show-bool":      {resolver.Resolved, "fmt/t::show#7", typesystem.MatchGeneric},
	}
	for id, w := range want {
		b, ok := pc.Result.Binding(id)
		require.True(t, ok, id)
		assert.Equal(t, w.kind, b.Kind, id)
		if w.kind == resolver.Resolved {
			assert.Equal(t, w.ref, b.Decl.Ref(), id)
		}
		if w.kind != resolver.Unresolved {
			assert.Equal(t, w.match, b.Match, id)
		}
	}

	require.Len(t, pc.Errors, 2)
	assert.True(t, errors.Is(pc.Errors[0], diagnostics.ErrUnresolved))
	assert.True(t, errors.Is(pc.Errors[1], diagnostics.ErrAmbiguous))
	assert.Equal(t, []string{"fmt/t::show#7", "fmt/Number | String::show#8"}, pc.Errors[1].Candidates)
	assert.False(t, pc.Fatal(), "per-site diagnostics do not abort the unit")
}

func TestDuplicateDeclarationAbortsUnit(t *testing.T) {
	src := []byte(`
body:
  - extend: String
    method: test
  - call: c
    receiver: String
    method: test
  - extend: String
    method: test
`)
	pc := Frontend().Run(NewPipelineContext(src, "dup.yaml"))
	require.Len(t, pc.Errors, 1)
	assert.True(t, errors.Is(pc.Errors[0], diagnostics.ErrDuplicateDeclaration))
	assert.Equal(t, 8, pc.Errors[0].Pos.Line)
	assert.True(t, pc.Fatal())
	assert.False(t, pc.Declared())

	require.NoError(t, Resolve(context.Background(), []*PipelineContext{pc}, 1, zerolog.Nop()))
	assert.Nil(t, pc.Result, "aborted units are not resolved")
}

func TestInvalidManifestStopsPipeline(t *testing.T) {
	pc := Frontend().Run(NewPipelineContext([]byte("body:\n  - import: nowhere\n"), "bad.yaml"))
	require.Len(t, pc.Errors, 1)
	assert.True(t, errors.Is(pc.Errors[0], diagnostics.ErrInvalidManifest))
	assert.Nil(t, pc.Manifest)
	assert.Nil(t, pc.Registry)
	assert.Equal(t, "bad.yaml", pc.UnitName())
}

func TestResolveMixedBatch(t *testing.T) {
	good := Frontend().Run(loadShapes(t))
	bad := Frontend().Run(NewPipelineContext([]byte("body: ["), "broken.yaml"))
	other := Frontend().Run(NewPipelineContext([]byte(`
unit: tiny
body:
  - extend: t
    method: id
  - call: one
    receiver: Int
    method: id
`), "tiny.yaml"))

	err := Resolve(context.Background(), []*PipelineContext{good, bad, other}, 0, zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, good.Result)
	assert.Nil(t, bad.Result)
	require.NotNil(t, other.Result)
	assert.Equal(t, "tiny", other.Result.Unit)
	assert.False(t, other.Result.HasErrors())
}
