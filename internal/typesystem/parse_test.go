package typesystem

import (
	"errors"
	"testing"
)

func TestParseTypeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Nominal", "Int", "Int"},
		{"Qualified", "geo.Point", "geo.Point"},
		{"Type Variable", "t", "t"},
		{"Application", "List<Int>", "List<Int>"},
		{"Nested Application", "Map<String, List<t>>", "Map<String, List<t>>"},
		{"Shape", "{ test: () -> String }", "{ test: () -> String }"},
		{"Shape Sorted", "{ b: Int, a: Float }", "{ a: Float, b: Int }"},
		{"Empty Shape", "{}", "{}"},
		{"Function", "(Int, String) -> Bool", "(Int, String) -> Bool"},
		{"Variadic Function", "(String, ...Int) -> Unit", "(String, ...Int) -> Unit"},
		{"Tuple", "(Int, Bool)", "(Int, Bool)"},
		{"Grouping", "(Int)", "Int"},
		{"Union Sorted", "String | Number | Object", "Number | Object | String"},
		{"Union Dedup", "Int | Int", "Int"},
		{"Union Of Function", "(() -> Int) | Bool", "(() -> Int) | Bool"},
		{"Function Returning Union", "() -> Int | Bool", "() -> Bool | Int"},
		{"Generic Constructor", "f<a>", "f<a>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseType(tt.input)
			if err != nil {
				t.Fatalf("ParseType(%q) error: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseType(%q).String() = %q, want %q", tt.input, got.String(), tt.want)
			}
			again, err := ParseType(got.String())
			if err != nil {
				t.Fatalf("re-parse of %q failed: %v", got.String(), err)
			}
			if !Equal(got, again) {
				t.Errorf("round trip changed %q into %q", got, again)
			}
		})
	}
}

func TestParseTypeKinds(t *testing.T) {
	if _, ok := MustParseType("a").(TVar); !ok {
		t.Errorf("lower-case identifier should parse as TVar")
	}
	con, ok := MustParseType("geo.Point").(TCon)
	if !ok || con.Module != "geo" || con.Name != "Point" {
		t.Errorf("geo.Point parsed as %#v", MustParseType("geo.Point"))
	}
	if _, ok := MustParseType("{ x: Int }").(TRecord); !ok {
		t.Errorf("shape should parse as TRecord")
	}
	if _, ok := MustParseType("Int | String").(TUnion); !ok {
		t.Errorf("union should parse as TUnion")
	}
}

func TestParseTypeErrors(t *testing.T) {
	inputs := []string{
		"",
		"List<",
		"List<Int",
		"{ x Int }",
		"{ x: Int, x: Int }",
		"(Int, String",
		"Int |",
		"(...Int)",
		"Int String",
		"->",
		"$skolem_a",
		"List<$t>",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ParseType(input)
			if err == nil {
				t.Fatalf("ParseType(%q) expected error", input)
			}
			var syntaxErr *SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Errorf("expected *SyntaxError, got %T", err)
			}
		})
	}
}
