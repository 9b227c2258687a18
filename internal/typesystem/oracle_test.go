package typesystem

import "testing"

func TestUniverseDefine(t *testing.T) {
	u := NewUniverse()
	if err := u.Define(NominalDef{Name: "Point"}); err != nil {
		t.Fatalf("Define: %v", err)
	}
	if err := u.Define(NominalDef{Name: "Point"}); err == nil {
		t.Errorf("redefinition should fail")
	}
	if err := u.Define(NominalDef{}); err == nil {
		t.Errorf("anonymous definition should fail")
	}
	if names := u.Names(); len(names) != 1 || names[0] != "Point" {
		t.Errorf("Names() = %v", names)
	}
}

func TestUniverseShapeOf(t *testing.T) {
	u := testUniverse(t)

	if _, ok := u.ShapeOf(TCon{Name: "Number"}); ok {
		t.Errorf("Number has no members")
	}
	if _, ok := u.ShapeOf(TCon{Name: "Unknown"}); ok {
		t.Errorf("unknown types have no shape")
	}
	got, ok := u.ShapeOf(MustParseType("List<String>"))
	if !ok {
		t.Fatalf("List<String> should have a shape")
	}
	if got.String() != "{ first: () -> String }" {
		t.Errorf("ShapeOf(List<String>) = %s", got)
	}
}

func TestUniverseIsSubtype(t *testing.T) {
	u := testUniverse(t)

	tests := []struct {
		sub, super string
		want       bool
	}{
		{"Circle", "Shape", true},
		{"Square", "Shape", true},
		{"Square", "Rectangle", true},
		{"Shape", "Circle", false},
		{"List<Int>", "Iterable<Int>", true},
		{"List<Int>", "Iterable<String>", false},
		{"Unknown", "Shape", false},
	}
	for _, tt := range tests {
		if got := u.IsSubtype(MustParseType(tt.sub), MustParseType(tt.super)); got != tt.want {
			t.Errorf("IsSubtype(%s, %s) = %v, want %v", tt.sub, tt.super, got, tt.want)
		}
	}
}

func TestUniverseSubtypeCycle(t *testing.T) {
	u := NewUniverse()
	_ = u.Define(NominalDef{Name: "A", Supertypes: []Type{TCon{Name: "B"}}})
	_ = u.Define(NominalDef{Name: "B", Supertypes: []Type{TCon{Name: "A"}}})

	if u.IsSubtype(TCon{Name: "A"}, TCon{Name: "C"}) {
		t.Errorf("cyclic hierarchy must terminate with false")
	}
	if !u.IsSubtype(TCon{Name: "A"}, TCon{Name: "B"}) {
		t.Errorf("A extends B")
	}
}
