package grammar

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultRoot is the rule describing one full connection lifecycle.
const DefaultRoot = "protocol"

// Definition is the textual form of one rule.
type Definition struct {
	Name  string
	Steps []string
}

// Rule is a compiled rule body.
type Rule struct {
	Name  string
	Steps []Step
}

func (r *Rule) String() string {
	parts := make([]string, len(r.Steps))
	for i, s := range r.Steps {
		parts[i] = s.String()
	}
	return r.Name + " = " + strings.Join(parts, ", ")
}

// Grammar is an immutable, validated rule table. It is safe for concurrent
// use by any number of matchers.
type Grammar struct {
	root     string
	rules    map[string]*Rule
	order    []string
	nullable map[string]bool
}

// Compile parses and validates a rule table. Every referenced rule must be
// defined, no rule may be empty, and no rule may reach itself without
// consuming a message.
func Compile(root string, defs []Definition) (*Grammar, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		root = DefaultRoot
	}
	g := &Grammar{
		root:  root,
		rules: make(map[string]*Rule, len(defs)),
		order: make([]string, 0, len(defs)),
	}
	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: unnamed rule", ErrInvalidStep)
		}
		if _, dup := g.rules[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, name)
		}
		if len(def.Steps) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyRule, name)
		}
		rule := &Rule{Name: name, Steps: make([]Step, 0, len(def.Steps))}
		for i, raw := range def.Steps {
			step, err := ParseStep(raw)
			if err != nil {
				return nil, fmt.Errorf("rule %s step %d: %w", name, i, err)
			}
			rule.Steps = append(rule.Steps, step)
		}
		g.rules[name] = rule
		g.order = append(g.order, name)
	}
	if _, ok := g.rules[root]; !ok {
		return nil, fmt.Errorf("%w: root %s", ErrUnknownRule, root)
	}
	for _, name := range g.order {
		for _, step := range g.rules[name].Steps {
			for _, ref := range step.rules() {
				if _, ok := g.rules[ref]; !ok {
					return nil, fmt.Errorf("%w: %s referenced by %s", ErrUnknownRule, ref, name)
				}
			}
		}
	}
	g.nullable = g.computeNullable()
	if err := g.checkLeftRecursion(); err != nil {
		return nil, err
	}
	log.Debug().Str("root", root).Int("rules", len(g.order)).Msg("grammar compiled")
	return g, nil
}

// MustCompile is Compile for static tables.
func MustCompile(root string, defs []Definition) *Grammar {
	g, err := Compile(root, defs)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Grammar) Root() string { return g.root }

func (g *Grammar) Rule(name string) (*Rule, bool) {
	r, ok := g.rules[name]
	return r, ok
}

// Rules returns the rules in definition order.
func (g *Grammar) Rules() []*Rule {
	out := make([]*Rule, len(g.order))
	for i, name := range g.order {
		out[i] = g.rules[name]
	}
	return out
}

// Nullable reports whether a rule can match without consuming any message.
func (g *Grammar) Nullable(name string) bool { return g.nullable[name] }

// String lists the rules one per line, root first.
func (g *Grammar) String() string {
	var b strings.Builder
	b.WriteString("root = " + g.root + "\n")
	for _, r := range g.Rules() {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func (g *Grammar) computeNullable() map[string]bool {
	nullable := make(map[string]bool, len(g.rules))
	for changed := true; changed; {
		changed = false
		for _, name := range g.order {
			if nullable[name] {
				continue
			}
			all := true
			for _, s := range g.rules[name].Steps {
				if !stepNullable(s, nullable) {
					all = false
					break
				}
			}
			if all {
				nullable[name] = true
				changed = true
			}
		}
	}
	return nullable
}

func stepNullable(s Step, nullable map[string]bool) bool {
	switch s.Kind {
	case StepOptional, StepRepeat:
		return true
	case StepRule:
		return nullable[s.Name]
	case StepAlternation:
		for _, b := range s.Branches {
			if stepNullable(b, nullable) {
				return true
			}
		}
	}
	return false
}

// leftRefs lists the rules a rule may enter before it consumes a message.
func (g *Grammar) leftRefs(name string) []string {
	var out []string
	for _, s := range g.rules[name].Steps {
		out = append(out, s.rules()...)
		if !stepNullable(s, g.nullable) {
			break
		}
	}
	return out
}

func (g *Grammar) checkLeftRecursion() error {
	const (
		_ = iota
		active
		done
	)
	state := make(map[string]int, len(g.rules))
	var path []string
	var visit func(string) error
	visit = func(name string) error {
		switch state[name] {
		case active:
			return fmt.Errorf("%w: %s -> %s", ErrLeftRecursion, strings.Join(path, " -> "), name)
		case done:
			return nil
		}
		state[name] = active
		path = append(path, name)
		for _, ref := range g.leftRefs(name) {
			if err := visit(ref); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[name] = done
		return nil
	}
	for _, name := range g.order {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}
