package manifest

import (
	"fmt"

	"github.com/funvibe/dcolon/internal/diagnostics"
	"github.com/funvibe/dcolon/internal/symbols"
	"github.com/funvibe/dcolon/internal/typesystem"
)

type validator struct {
	m       *Manifest
	callIDs map[string]diagnostics.Position
}

func (v *validator) errorf(line, col int, format string, args ...interface{}) *diagnostics.DiagnosticError {
	pos := diagnostics.Position{File: v.m.Path, Line: line, Column: col}
	return diagnostics.NewErrorf(diagnostics.ErrR005, pos, format, args...)
}

// validate checks the manifest for semantic errors and parses every
// type descriptor.
func (m *Manifest) validate() error {
	v := &validator{m: m, callIDs: make(map[string]diagnostics.Position)}

	universe, err := v.buildUniverse()
	if err != nil {
		return err
	}
	m.universe = universe

	for _, name := range m.ModuleNames() {
		if name == "" {
			return v.errorf(0, 0, "modules: empty module name")
		}
		items := m.Modules[name]
		for i := range items {
			where := fmt.Sprintf("modules.%s[%d]", name, i)
			if items[i].Kind() != KindExtend {
				return v.errorf(items[i].Line, items[i].Column, "%s: modules may only contain extend items", where)
			}
			if err := v.item(&items[i], where); err != nil {
				return err
			}
		}
	}

	return v.body(m.Body, "body", 0)
}

func (v *validator) buildUniverse() (*typesystem.Universe, error) {
	u := typesystem.NewUniverse()
	for i, td := range v.m.Types {
		where := fmt.Sprintf("types[%d]", i)
		if td.Name == "" {
			return nil, v.errorf(td.Line, td.Column, "%s: name is required", where)
		}
		def := typesystem.NominalDef{Name: td.Name, Params: td.Params}
		if td.Shape != "" {
			t, err := typesystem.ParseType(td.Shape)
			if err != nil {
				return nil, v.errorf(td.Line, td.Column, "%s (%s): shape", where, td.Name).Wrap(err)
			}
			rec, ok := t.(typesystem.TRecord)
			if !ok {
				return nil, v.errorf(td.Line, td.Column, "%s (%s): shape %q is not a record", where, td.Name, td.Shape)
			}
			def.Shape = rec
		}
		for _, super := range td.Supertypes {
			t, err := typesystem.ParseType(super)
			if err != nil {
				return nil, v.errorf(td.Line, td.Column, "%s (%s): supertype", where, td.Name).Wrap(err)
			}
			def.Supertypes = append(def.Supertypes, t)
		}
		if err := u.Define(def); err != nil {
			return nil, v.errorf(td.Line, td.Column, "%s: %v", where, err)
		}
	}
	return u, nil
}

func (v *validator) body(items []Item, where string, depth int) error {
	for i := range items {
		it := &items[i]
		itemWhere := fmt.Sprintf("%s[%d]", where, i)
		if err := v.item(it, itemWhere); err != nil {
			return err
		}
		if it.Block != nil {
			if err := v.body(it.Block.Body, itemWhere+".block.body", depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (v *validator) item(it *Item, where string) error {
	kind := it.Kind()
	switch kind {
	case "":
		return v.errorf(it.Line, it.Column, "%s: exactly one of extend, call, import or block is required", where)

	case KindExtend:
		if it.Method == "" {
			return v.errorf(it.Line, it.Column, "%s: method is required", where)
		}
		if it.Receiver != "" {
			return v.errorf(it.Line, it.Column, "%s: receiver is only valid on call items", where)
		}
		t, err := v.parse(it, where, "extend", it.Extend)
		if err != nil {
			return err
		}
		it.TargetType = t
		if it.Signature != "" {
			sig, err := v.parse(it, where, "signature", it.Signature)
			if err != nil {
				return err
			}
			it.SignatureType = sig
		}

	case KindCall:
		if it.Method == "" {
			return v.errorf(it.Line, it.Column, "%s: method is required", where)
		}
		if it.Receiver == "" {
			return v.errorf(it.Line, it.Column, "%s (%s): receiver is required", where, it.Call)
		}
		if it.Signature != "" {
			return v.errorf(it.Line, it.Column, "%s: signature is only valid on extend items", where)
		}
		if prev, dup := v.callIDs[it.Call]; dup {
			return v.errorf(it.Line, it.Column, "%s: call id %q already used at %s", where, it.Call, prev)
		}
		v.callIDs[it.Call] = it.Position(v.m.Path)
		t, err := v.parse(it, where, "receiver", it.Receiver)
		if err != nil {
			return err
		}
		it.ReceiverType = t

	case KindImport:
		if it.Method != "" || it.Receiver != "" || it.Signature != "" {
			return v.errorf(it.Line, it.Column, "%s: import items only support the module name", where)
		}
		if _, ok := v.m.Modules[it.Import]; !ok {
			return v.errorf(it.Line, it.Column, "%s: unknown module %q", where, it.Import)
		}

	case KindBlock:
		if it.Method != "" || it.Receiver != "" || it.Signature != "" {
			return v.errorf(it.Line, it.Column, "%s: block items only support kind and body", where)
		}
		sk, ok := symbols.ParseScopeKind(it.Block.Kind)
		if !ok || sk == symbols.ScopeModule {
			return v.errorf(it.Line, it.Column, "%s: invalid block kind %q (want block or function)", where, it.Block.Kind)
		}
		it.Block.ScopeKind = sk
	}
	return nil
}

func (v *validator) parse(it *Item, where, field, input string) (typesystem.Type, error) {
	t, err := typesystem.ParseType(input)
	if err != nil {
		return nil, v.errorf(it.Line, it.Column, "%s: %s %q", where, field, input).Wrap(err)
	}
	return t, nil
}
