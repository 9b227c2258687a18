package typesystem

import "testing"

func testUniverse(t *testing.T) *Universe {
	t.Helper()
	u := NewUniverse()
	defs := []NominalDef{
		{Name: "String", Shape: shape(t, "{ length: () -> Int, test: () -> String }")},
		{Name: "Number"},
		{Name: "Shape", Shape: shape(t, "{ area: () -> Float }")},
		{
			Name:       "Rectangle",
			Shape:      shape(t, "{ area: () -> Float, test: () -> String, width: Float }"),
			Supertypes: []Type{TCon{Name: "Shape"}},
		},
		{
			Name:       "Circle",
			Shape:      shape(t, "{ area: () -> Float, test: () -> String, radius: Float }"),
			Supertypes: []Type{TCon{Name: "Shape"}},
		},
		{Name: "Square", Supertypes: []Type{TCon{Name: "Rectangle"}}},
		{Name: "Iterable", Params: []string{"t"}},
		{
			Name:       "List",
			Params:     []string{"t"},
			Shape:      shape(t, "{ first: () -> t }"),
			Supertypes: []Type{MustParseType("Iterable<t>")},
		},
	}
	for _, def := range defs {
		if err := u.Define(def); err != nil {
			t.Fatalf("Define(%s): %v", def.Name, err)
		}
	}
	return u
}

func shape(t *testing.T, s string) TRecord {
	t.Helper()
	rec, ok := MustParseType(s).(TRecord)
	if !ok {
		t.Fatalf("%s is not a shape", s)
	}
	return rec
}

func TestMatch(t *testing.T) {
	m := NewMatcher(testUniverse(t))

	tests := []struct {
		name     string
		receiver string
		target   string
		want     MatchKind
	}{
		{"Exact Nominal", "String", "String", MatchExact},
		{"Exact Application", "List<Int>", "List<Int>", MatchExact},
		{"Exact Union", "Int | String", "String | Int", MatchExact},
		{"Nominal Mismatch", "Number", "String", MatchNone},
		{"Structural Shape", "Circle", "{ test: () -> String }", MatchStructural},
		{"Structural Shape Missing Member", "Number", "{ test: () -> String }", MatchNone},
		{"Structural Shape Wrong Member Type", "Circle", "{ test: () -> Int }", MatchNone},
		{"Structural Shape Receiver", "{ area: () -> Float, name: String }", "{ area: () -> Float }", MatchStructural},
		{"Structural Interface", "Circle", "Shape", MatchStructural},
		{"Structural Transitive Interface", "Square", "Shape", MatchStructural},
		{"Interface Is Not Implementation", "Shape", "Circle", MatchNone},
		{"Generic Parameter", "Number", "t", MatchGeneric},
		{"Generic Application", "List<Int>", "List<t>", MatchGeneric},
		{"Generic Application Mismatch", "Map<Int, String>", "List<t>", MatchNone},
		{"Generic Shape", "List<Int>", "{ first: () -> t }", MatchGeneric},
		{"Instantiated Supertype", "List<Int>", "Iterable<Int>", MatchStructural},
		{"Union Target Member", "Number", "Number | String", MatchGeneric},
		{"Union Target Non Member", "Circle", "Number | String", MatchNone},
		{"Union Receiver Against Generic", "Number | String", "t", MatchGeneric},
		{"Union Receiver Against Superset Union", "Number | String", "Number | Object | String", MatchGeneric},
		{"Union Receiver Partial", "Number | String", "String", MatchNone},
		{"Union Receiver Common Shape", "Circle | Rectangle", "{ area: () -> Float }", MatchGeneric},
		{"Generic Receiver Stays Rigid", "List<a>", "List<Int>", MatchNone},
		{"Generic Receiver Against Generic Target", "List<a>", "List<t>", MatchGeneric},
		{"Generic Receiver Same Variable Name", "List<t>", "List<t>", MatchGeneric},
		{"Type Variable Same Name", "t", "t", MatchGeneric},
		{"Type Variable Other Name", "t", "u", MatchGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(MustParseType(tt.receiver), MustParseType(tt.target))
			if got != tt.want {
				t.Errorf("Match(%s, %s) = %s, want %s", tt.receiver, tt.target, got, tt.want)
			}
		})
	}
}

func TestMatchWithoutOracle(t *testing.T) {
	m := NewMatcher(nil)

	if got := m.Match(MustParseType("Circle"), MustParseType("Shape")); got != MatchNone {
		t.Errorf("nominal subtyping needs an oracle, got %s", got)
	}
	if got := m.Match(MustParseType("{ area: Float }"), MustParseType("{ area: Float }")); got != MatchExact {
		t.Errorf("identical shapes should be exact, got %s", got)
	}
	if got := m.Match(MustParseType("{ area: Float, x: Int }"), MustParseType("{ area: Float }")); got != MatchStructural {
		t.Errorf("shape receivers match without an oracle, got %s", got)
	}
	if got := m.Match(nil, MustParseType("Int")); got != MatchNone {
		t.Errorf("nil receiver should never match, got %s", got)
	}
}

func TestMatchKindOrdering(t *testing.T) {
	if !(MatchExact > MatchStructural && MatchStructural > MatchGeneric && MatchGeneric > MatchNone) {
		t.Errorf("match kinds must rank exact > structural > generic > none")
	}
	names := map[MatchKind]string{
		MatchExact:      "exact",
		MatchStructural: "structural",
		MatchGeneric:    "generic",
		MatchNone:       "none",
	}
	for k, want := range names {
		if k.String() != want {
			t.Errorf("%d.String() = %s, want %s", k, k.String(), want)
		}
	}
}

func TestMatchIgnoresVariableNames(t *testing.T) {
	m := NewMatcher(testUniverse(t))
	targets := []string{"List<t>", "List<u>", "t", "{ first: () -> t }"}
	receivers := []string{"List<t>", "List<u>", "List<v>"}

	for _, target := range targets {
		want := m.Match(MustParseType(receivers[0]), MustParseType(target))
		for _, recv := range receivers[1:] {
			if got := m.Match(MustParseType(recv), MustParseType(target)); got != want {
				t.Errorf("Match(%s, %s) = %s, want %s as for %s", recv, target, got, want, receivers[0])
			}
		}
	}
}
