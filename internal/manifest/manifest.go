// Package manifest reads unit manifests: YAML descriptions of a compilation
// unit as the host front end would hand it to the resolver.
//
// A manifest lists the nominal types the unit knows about, named modules
// whose extensions can be imported, and the unit body: an ordered list of
// extension declarations, `::` call sites, imports and nested blocks.
//
//	unit: shapes
//	types:
//	  - name: Circle
//	    shape: "{ area: () -> Float }"
//	    supertypes: [Shape]
//	modules:
//	  geometry:
//	    - extend: Shape
//	      method: area
//	body:
//	  - import: geometry
//	  - call: c1
//	    receiver: Circle
//	    method: area
//	  - block:
//	      kind: function
//	      body: [...]
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/dcolon/internal/diagnostics"
	"github.com/funvibe/dcolon/internal/symbols"
	"github.com/funvibe/dcolon/internal/typesystem"
)

// Manifest is one compilation unit.
type Manifest struct {
	// Unit names the compilation unit. Defaults to the file name.
	Unit string `yaml:"unit"`

	// Types are the nominal types known to the type oracle.
	Types []TypeDef `yaml:"types,omitempty"`

	// Modules maps a module name to the extensions it exports.
	// Only `extend` items are allowed inside a module.
	Modules map[string][]Item `yaml:"modules,omitempty"`

	// Body is the module scope of the unit, in source order.
	Body []Item `yaml:"body"`

	// Path is the file the manifest was read from.
	Path string `yaml:"-"`

	// Fingerprint is the whitespace-normalised content hash.
	Fingerprint string `yaml:"-"`

	universe *typesystem.Universe
}

// TypeDef declares a nominal type.
type TypeDef struct {
	Name       string   `yaml:"name"`
	Params     []string `yaml:"params,omitempty"`
	Shape      string   `yaml:"shape,omitempty"`
	Supertypes []string `yaml:"supertypes,omitempty"`

	Line   int `yaml:"-"`
	Column int `yaml:"-"`
}

// Item is one body entry. Exactly one of Extend, Call, Import or Block is set.
type Item struct {
	// Extend declares `Target::method`; Extend holds the target descriptor.
	Extend    string `yaml:"extend,omitempty"`
	Signature string `yaml:"signature,omitempty"`

	// Call is the call site identity; Receiver is its static receiver type.
	Call     string `yaml:"call,omitempty"`
	Receiver string `yaml:"receiver,omitempty"`

	// Method is shared by extend and call items.
	Method string `yaml:"method,omitempty"`

	// Import brings a module's extensions into the enclosing scope.
	Import string `yaml:"import,omitempty"`

	// Block opens a nested scope.
	Block *Block `yaml:"block,omitempty"`

	Line   int `yaml:"-"`
	Column int `yaml:"-"`

	// Parsed descriptors, filled by validation.
	TargetType    typesystem.Type `yaml:"-"`
	ReceiverType  typesystem.Type `yaml:"-"`
	SignatureType typesystem.Type `yaml:"-"`
}

// Block is a nested scope.
type Block struct {
	Kind string `yaml:"kind,omitempty"`
	Body []Item `yaml:"body"`

	ScopeKind symbols.ScopeKind `yaml:"-"`
}

// Item kinds.
const (
	KindExtend = "extend"
	KindCall   = "call"
	KindImport = "import"
	KindBlock  = "block"
)

// UnmarshalYAML records the item's source position.
func (it *Item) UnmarshalYAML(node *yaml.Node) error {
	type plain Item
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*it = Item(p)
	it.Line, it.Column = node.Line, node.Column
	return nil
}

// UnmarshalYAML records the type definition's source position.
func (td *TypeDef) UnmarshalYAML(node *yaml.Node) error {
	type plain TypeDef
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*td = TypeDef(p)
	td.Line, td.Column = node.Line, node.Column
	return nil
}

// Kind returns which of the item fields is set, or "" when none or
// several are.
func (it *Item) Kind() string {
	var kinds []string
	if it.Extend != "" {
		kinds = append(kinds, KindExtend)
	}
	if it.Call != "" {
		kinds = append(kinds, KindCall)
	}
	if it.Import != "" {
		kinds = append(kinds, KindImport)
	}
	if it.Block != nil {
		kinds = append(kinds, KindBlock)
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Position returns the item's location in file.
func (it *Item) Position(file string) diagnostics.Position {
	return diagnostics.Position{File: file, Line: it.Line, Column: it.Column}
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses manifest content from bytes.
// The path argument is used for positions and the default unit name.
func Parse(data []byte, path string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, diagnostics.NewErrorf(diagnostics.ErrR005, diagnostics.Position{File: path},
			"parsing %s", path).Wrap(err)
	}
	m.Path = path
	m.Fingerprint = Fingerprint(data)
	if err := m.validate(); err != nil {
		return nil, err
	}
	m.setDefaults()
	return &m, nil
}

func (m *Manifest) setDefaults() {
	if m.Unit == "" {
		base := m.Path
		if i := strings.LastIndexAny(base, `/\`); i >= 0 {
			base = base[i+1:]
		}
		m.Unit = strings.TrimSuffix(strings.TrimSuffix(base, ".yaml"), ".yml")
	}
}

// Universe returns the type oracle built from the manifest's types.
func (m *Manifest) Universe() *typesystem.Universe { return m.universe }

// ModuleNames returns the declared module names in sorted order.
func (m *Manifest) ModuleNames() []string {
	names := make([]string, 0, len(m.Modules))
	for name := range m.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Walk visits every body item depth first in source order.
func (m *Manifest) Walk(fn func(it *Item, depth int)) {
	var walk func(items []Item, depth int)
	walk = func(items []Item, depth int) {
		for i := range items {
			fn(&items[i], depth)
			if items[i].Block != nil {
				walk(items[i].Block.Body, depth+1)
			}
		}
	}
	walk(m.Body, 0)
}

// Fingerprint returns a stable key for manifest content. Trailing
// whitespace on lines and trailing blank lines do not affect it.
func Fingerprint(data []byte) string {
	lines := strings.Split(string(data), "\n")
	var normalized strings.Builder
	for _, line := range lines {
		normalized.WriteString(strings.TrimRight(line, " \t\r"))
		normalized.WriteString("\n")
	}

	h := sha256.New()
	h.Write([]byte(strings.TrimRight(normalized.String(), "\n")))
	h.Write([]byte("\x00"))
	h.Write([]byte(fingerprintVersion))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// fingerprintVersion is bumped when resolution semantics change so that
// stored bindings are not reused across incompatible versions.
const fingerprintVersion = "v1"
