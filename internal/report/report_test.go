package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/dcolon/internal/diagnostics"
	"github.com/funvibe/dcolon/internal/resolver"
	"github.com/funvibe/dcolon/internal/store"
	"github.com/funvibe/dcolon/internal/symbols"
	"github.com/funvibe/dcolon/internal/typesystem"
)

func sampleEntries(t *testing.T) []Entry {
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

	sites := []resolver.CallSite{
		{ID: "ok", Receiver: typesystem.TCon{Name: "String"}, Method: "test", Scope: root,
			Pos: diagnostics.Position{File: "u.yaml", Line: 4, Column: 5}},
		{ID: "missing", Receiver: typesystem.TCon{Name: "Int"}, Method: "test", Scope: root,
			Pos: diagnostics.Position{File: "u.yaml", Line: 7, Column: 5}},
		{ID: "tie", Receiver: typesystem.TCon{Name: "Int"}, Method: "show", Scope: root,
			Pos: diagnostics.Position{File: "u.yaml", Line: 10, Column: 5}},
	}
	res := resolver.New(reg).ResolveAll(sites)
	res.Unit = "sample"
	return FromResult(res)
}

func TestFromResult(t *testing.T) {
	entries := sampleEntries(t)
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{
		Unit:     "sample",
		Site:     "ok",
		Position: "u.yaml:4:5",
		Receiver: "String",
		Method:   "test",
		Kind:     "resolved",
		Ref:      "String::test#1",
		Match:    "exact",
	}, entries[0])

	assert.Equal(t, "unresolved", entries[1].Kind)
	assert.Contains(t, entries[1].Message, "no extension method `test` in scope for type Int")

	assert.Equal(t, "ambiguous", entries[2].Kind)
	assert.Equal(t, []string{"fmt/t::show#2", "fmt/Int | String::show#3"}, entries[2].Candidates)
}

func TestFromRowsMatchesFromResult(t *testing.T) {
	entries := sampleEntries(t)
	rows := []store.Row{
		{Seq: 0, Site: "ok", Receiver: "String", Method: "test", Kind: "resolved", Ref: "String::test#1",
			Match: "exact", Candidates: []string{}, Pos: diagnostics.Position{File: "u.yaml", Line: 4, Column: 5}},
	}
	assert.Equal(t, entries[0], FromRows("sample", rows)[0])
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleEntries(t))
	assert.Equal(t, Summary{Units: 1, Resolved: 1, Ambiguous: 1, Unresolved: 1}, s)
	assert.True(t, s.Failed())
	assert.False(t, Summary{Resolved: 3}.Failed())
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sampleEntries(t), false))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "u.yaml:4:5 ok String::test -> String::test#1 (exact)", lines[0])
	assert.Contains(t, lines[1], "[R003]")
	assert.Contains(t, lines[2], "[R004]")
	assert.Equal(t, "sample: 1 resolved, 1 ambiguous, 1 unresolved", lines[3])
	assert.NotContains(t, buf.String(), "\033[")
}

func TestTextColor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sampleEntries(t), true))
	assert.Contains(t, buf.String(), ansiRed)
	assert.Contains(t, buf.String(), ansiYellow)
}

func TestTextGroupsUnits(t *testing.T) {
	entries := []Entry{
		{Unit: "a", Site: "1", Kind: "resolved", Ref: "X::m#1", Match: "exact"},
		{Unit: "b", Site: "2", Kind: "resolved", Ref: "Y::m#1", Match: "generic"},
	}
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, entries, false))
	assert.Contains(t, buf.String(), "a: 1 resolved, 0 ambiguous, 0 unresolved\n")
	assert.Contains(t, buf.String(), "b: 1 resolved, 0 ambiguous, 0 unresolved\n")
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, sampleEntries(t)))
	out := buf.String()
	assert.Contains(t, out, "String::test#1")
	assert.Contains(t, out, "ambiguous: fmt/t::show#2, fmt/Int | String::show#3")
	assert.Contains(t, out, "unresolved")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleEntries(t)))

	var doc jsonReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, Summary{Units: 1, Resolved: 1, Ambiguous: 1, Unresolved: 1}, doc.Summary)
	require.Len(t, doc.Bindings, 3)
	assert.Equal(t, "tie", doc.Bindings[2].Site)

	buf.Reset()
	require.NoError(t, JSON(&buf, nil))
	assert.Contains(t, buf.String(), `"bindings": []`)
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"text", "TABLE", "json"} {
		_, err := ParseFormat(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriteDispatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleEntries(t), Options{}))
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
}
