package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/dcolon/internal/diagnostics"
	"github.com/funvibe/dcolon/internal/resolver"
	"github.com/funvibe/dcolon/internal/symbols"
	"github.com/funvibe/dcolon/internal/typesystem"
)

func sampleResult(t *testing.T) *resolver.Result {
	t.Helper()
	reg := symbols.NewRegistry(symbols.NewScopeTree(), nil)
	root := reg.Tree().Root().ID
	_, err := reg.Declare(root, typesystem.TCon{Name: "String"}, "test", nil, diagnostics.Position{})
	require.NoError(t, err)
	_, err = reg.Import(root, "fmt", []*symbols.Declaration{
		{Target: typesystem.TVar{Name: "t"}, Method: "show"},
		{Target: typesystem.MustParseType("Int | String"), Method: "show"},
	}, diagnostics.Position{})
	require.NoError(t, err)

	pos := func(line int) diagnostics.Position {
		return diagnostics.Position{File: "unit.yaml", Line: line, Column: 3}
	}
	sites := []resolver.CallSite{
		{ID: "ok", Receiver: typesystem.TCon{Name: "String"}, Method: "test", Scope: root, Pos: pos(1)},
		{ID: "missing", Receiver: typesystem.TCon{Name: "Int"}, Method: "test", Scope: root, Pos: pos(2)},
		{ID: "tie", Receiver: typesystem.TCon{Name: "Int"}, Method: "show", Scope: root, Pos: pos(3)},
	}
	res := resolver.New(reg).ResolveAll(sites)
	res.Unit = "sample"
	return res
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndReadRun(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.SaveRun(ctx, "unit.yaml", "abc123", sampleResult(t))
	require.NoError(t, err)
	assert.Len(t, id, 36)

	run, err := s.LatestRun(ctx, "unit.yaml", "abc123")
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, "sample", run.Unit)
	assert.Equal(t, "unit.yaml", run.Path)
	assert.Equal(t, 1, run.Resolved)
	assert.Equal(t, 1, run.Unresolved)
	assert.Equal(t, 1, run.Ambiguous)
	assert.WithinDuration(t, time.Now(), run.CreatedAt, time.Minute)

	byID, err := s.Run(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, *run, *byID)
	_, err = s.Run(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	rows, err := s.Bindings(ctx, id)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "ok", rows[0].Site)
	assert.Equal(t, "resolved", rows[0].Kind)
	assert.Equal(t, "String::test#1", rows[0].Ref)
	assert.Equal(t, "exact", rows[0].Match)
	assert.Empty(t, rows[0].Candidates)
	assert.Empty(t, rows[0].Message)
	assert.Equal(t, diagnostics.Position{File: "unit.yaml", Line: 1, Column: 3}, rows[0].Pos)

	assert.Equal(t, "unresolved", rows[1].Kind)
	assert.Empty(t, rows[1].Ref)
	assert.Contains(t, rows[1].Message, "[R003]")

	assert.Equal(t, "ambiguous", rows[2].Kind)
	assert.Equal(t, "generic", rows[2].Match)
	assert.Equal(t, []string{"fmt/t::show#2", "fmt/Int | String::show#3"}, rows[2].Candidates)
	assert.Contains(t, rows[2].Message, "[R004]")
}

func TestLatestRunPrefersNewest(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.SaveRun(ctx, "unit.yaml", "fp", sampleResult(t))
	require.NoError(t, err)
	second, err := s.SaveRun(ctx, "unit.yaml", "fp", sampleResult(t))
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	run, err := s.LatestRun(ctx, "unit.yaml", "fp")
	require.NoError(t, err)
	assert.Equal(t, second, run.ID)

	_, err = s.LatestRun(ctx, "unit.yaml", "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestRunKeepsPathsApart(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	original, err := s.SaveRun(ctx, "unit.yaml", "fp", sampleResult(t))
	require.NoError(t, err)
	copied, err := s.SaveRun(ctx, "copy/unit.yaml", "fp", sampleResult(t))
	require.NoError(t, err)

	run, err := s.LatestRun(ctx, "unit.yaml", "fp")
	require.NoError(t, err)
	assert.Equal(t, original, run.ID)

	run, err = s.LatestRun(ctx, "copy/unit.yaml", "fp")
	require.NoError(t, err)
	assert.Equal(t, copied, run.ID)

	_, err = s.LatestRun(ctx, "other.yaml", "fp")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunsHistory(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	var ids []string
	for _, fp := range []string{"a", "b", "c"} {
		id, err := s.SaveRun(ctx, fp+".yaml", fp, sampleResult(t))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := s.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)

	all, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestBindingsUnknownRun(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Bindings(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenInMemory(t *testing.T) {
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.Runs(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
