package grammar

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
)

// grammar file layout:
//
//	root = "protocol"
//	[rules]
//	protocol = ["open-connection", "?use-connection", "close-connection"]
type fileGrammar struct {
	Root  string              `toml:"root"`
	Rules map[string][]string `toml:"rules"`
}

// LoadFile reads a TOML grammar file.
func LoadFile(path string) (*Grammar, error) {
	var raw fileGrammar
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load grammar %q: %w", path, err)
	}
	g, err := fromFile(raw, meta)
	if err != nil {
		return nil, fmt.Errorf("load grammar %q: %w", path, err)
	}
	return g, nil
}

// Parse reads a TOML grammar from memory.
func Parse(data string) (*Grammar, error) {
	var raw fileGrammar
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("parse grammar: %w", err)
	}
	return fromFile(raw, meta)
}

func fromFile(raw fileGrammar, meta toml.MetaData) (*Grammar, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	root := DefaultRoot
	if meta.IsDefined("root") {
		root = strings.TrimSpace(raw.Root)
	}
	// Keys() preserves document order, which keeps listings stable.
	var defs []Definition
	for _, key := range meta.Keys() {
		if len(key) != 2 || key[0] != "rules" {
			continue
		}
		defs = append(defs, Definition{Name: key[1], Steps: raw.Rules[key[1]]})
	}
	return Compile(root, defs)
}

// WriteTOML writes g in the grammar file format. Rules are emitted in
// sorted order.
func WriteTOML(w io.Writer, g *Grammar) error {
	out := fileGrammar{Root: g.root, Rules: make(map[string][]string, len(g.order))}
	for _, r := range g.Rules() {
		steps := make([]string, len(r.Steps))
		for i, s := range r.Steps {
			steps[i] = s.String()
		}
		out.Rules[r.Name] = steps
	}
	return toml.NewEncoder(w).Encode(out)
}
