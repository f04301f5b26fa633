package grammar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/amqpdetective/internal/protocol/frame"
)

var (
	ErrInvalidStep             = errors.New("grammar: invalid step")
	ErrQuantifierInAlternation = errors.New("grammar: quantifier inside alternation")
	ErrUnknownRule             = errors.New("grammar: unknown rule")
	ErrDuplicateRule           = errors.New("grammar: duplicate rule")
	ErrEmptyRule               = errors.New("grammar: empty rule")
	ErrLeftRecursion           = errors.New("grammar: left recursion")
)

type StepKind uint8

const (
	StepAtomic StepKind = iota + 1
	StepRule
	StepOptional
	StepRepeat
	StepAlternation
)

func (k StepKind) String() string {
	switch k {
	case StepAtomic:
		return "atomic"
	case StepRule:
		return "rule"
	case StepOptional:
		return "optional"
	case StepRepeat:
		return "repeat"
	case StepAlternation:
		return "alternation"
	default:
		return fmt.Sprintf("step(%d)", uint8(k))
	}
}

// Step is one element of a rule body.
//
// Atomic steps carry Source and Name (the canonical message name). Rule steps
// carry Name (the referenced rule). Optional and Repeat wrap Inner, which is
// an atomic or rule step. Alternation lists its Branches, each atomic or rule.
type Step struct {
	Kind     StepKind
	Source   frame.Source
	Name     string
	Inner    *Step
	Branches []Step
}

func (s Step) String() string {
	switch s.Kind {
	case StepAtomic:
		return sidePrefix(s.Source) + s.Name
	case StepRule:
		return s.Name
	case StepOptional:
		return "?" + s.Inner.String()
	case StepRepeat:
		return "*" + s.Inner.String()
	case StepAlternation:
		parts := make([]string, len(s.Branches))
		for i, b := range s.Branches {
			parts[i] = b.String()
		}
		return strings.Join(parts, " | ")
	default:
		return s.Kind.String()
	}
}

func sidePrefix(src frame.Source) string {
	if src == frame.SourceServer {
		return "S:"
	}
	return "C:"
}

// ParseStep parses the textual step forms:
//
//	C:<message>  S:<message>  <rule>  ?<step>  *<step>  a | b | c
func ParseStep(raw string) (Step, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Step{}, fmt.Errorf("%w: empty step", ErrInvalidStep)
	}
	if strings.Contains(text, "|") {
		return parseAlternation(text)
	}
	switch text[0] {
	case '?', '*':
		inner, err := parseSimple(text[1:])
		if err != nil {
			return Step{}, fmt.Errorf("%w: %q", err, raw)
		}
		kind := StepOptional
		if text[0] == '*' {
			kind = StepRepeat
		}
		return Step{Kind: kind, Inner: &inner}, nil
	}
	return parseSimple(text)
}

func parseAlternation(text string) (Step, error) {
	parts := strings.Split(text, "|")
	branches := make([]Step, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return Step{}, fmt.Errorf("%w: empty branch in %q", ErrInvalidStep, text)
		}
		if part[0] == '?' || part[0] == '*' {
			return Step{}, fmt.Errorf("%w: %q in %q", ErrQuantifierInAlternation, part, text)
		}
		b, err := parseSimple(part)
		if err != nil {
			return Step{}, err
		}
		branches = append(branches, b)
	}
	if len(branches) < 2 {
		return Step{}, fmt.Errorf("%w: alternation needs two branches: %q", ErrInvalidStep, text)
	}
	return Step{Kind: StepAlternation, Branches: branches}, nil
}

// parseSimple accepts an atomic step or a rule reference.
func parseSimple(text string) (Step, error) {
	text = strings.TrimSpace(text)
	if text == "" || strings.ContainsAny(text, " \t?*|") {
		return Step{}, fmt.Errorf("%w: %q", ErrInvalidStep, text)
	}
	if len(text) > 2 && text[1] == ':' {
		var src frame.Source
		switch text[0] {
		case 'C':
			src = frame.SourceClient
		case 'S':
			src = frame.SourceServer
		default:
			return Step{}, fmt.Errorf("%w: unknown side in %q", ErrInvalidStep, text)
		}
		return Step{Kind: StepAtomic, Source: src, Name: text[2:]}, nil
	}
	if strings.Contains(text, ":") {
		return Step{}, fmt.Errorf("%w: %q", ErrInvalidStep, text)
	}
	return Step{Kind: StepRule, Name: text}, nil
}

// rules returns the rule names a step references directly.
func (s Step) rules() []string {
	switch s.Kind {
	case StepRule:
		return []string{s.Name}
	case StepOptional, StepRepeat:
		return s.Inner.rules()
	case StepAlternation:
		var out []string
		for _, b := range s.Branches {
			out = append(out, b.rules()...)
		}
		return out
	default:
		return nil
	}
}
