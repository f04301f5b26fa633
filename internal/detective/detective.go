package detective

import (
	"fmt"

	"github.com/danmuck/amqpdetective/internal/grammar"
	"github.com/danmuck/amqpdetective/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

// MismatchError describes why a step could not consume the next message.
type MismatchError struct {
	Rule string
	Step string
	Got  string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("protocol mismatch: rule=%s step=%s got=%s", e.Rule, e.Step, e.Got)
}

const endOfQueue = "<end of queue>"

// Outcome labels.
const (
	OutcomeMatched  = "matched"
	OutcomePartial  = "partial"
	OutcomeMismatch = "mismatch"
)

// Result is the merged message order produced by one analysis.
type Result struct {
	Rule     string
	Messages []frame.Message
	Matched  bool
	Flagged  int
	// Mismatch is the failure that got furthest into the input. Set only
	// when the rule did not match.
	Mismatch *MismatchError
}

// Outcome is matched, partial (matched but trailing input was flagged) or
// mismatch.
func (r Result) Outcome() string {
	switch {
	case !r.Matched:
		return OutcomeMismatch
	case r.Flagged > 0:
		return OutcomePartial
	default:
		return OutcomeMatched
	}
}

// Detective interleaves the client and server message queues into the order
// the grammar permits. Queues are read through cursors and never modified;
// only the out-of-order flag of a message is written.
type Detective struct {
	grammar *grammar.Grammar
	client  []frame.Message
	server  []frame.Message

	ci, si int
	out    []frame.Message

	furthest    *MismatchError
	furthestPos int
}

// New returns a Detective over the two queues. A nil grammar selects the
// built-in AMQP 0-9-1 grammar.
func New(g *grammar.Grammar, client, server []frame.Message) *Detective {
	if g == nil {
		g = grammar.AMQP091()
	}
	return &Detective{grammar: g, client: client, server: server}
}

// Analyze matches the grammar's root rule.
func (d *Detective) Analyze() (Result, error) {
	return d.AnalyzeRule(d.grammar.Root())
}

// AnalyzeRule matches the named rule against the start of both queues.
//
// When the rule matches, the merged order is returned and any messages left
// in either queue are appended alternately; heartbeats among them stay
// unflagged, everything else is flagged. When it does not match, every
// message is appended alternately and flagged. The error is non-nil only for
// an unknown rule.
func (d *Detective) AnalyzeRule(name string) (Result, error) {
	if _, ok := d.grammar.Rule(name); !ok {
		return Result{}, fmt.Errorf("%w: %s", grammar.ErrUnknownRule, name)
	}
	d.ci, d.si = 0, 0
	d.out = make([]frame.Message, 0, len(d.client)+len(d.server))
	d.furthest, d.furthestPos = nil, -1

	res := Result{Rule: name}
	if err := d.matchRule(name); err != nil {
		res.Mismatch = d.furthest
		if res.Mismatch == nil {
			res.Mismatch = err
		}
		res.Flagged = d.appendRemaining(func(frame.Message) bool { return true })
		log.Debug().
			Str("rule", name).
			Str("mismatch", res.Mismatch.Error()).
			Int("flagged", res.Flagged).
			Msg("no legal interleaving")
	} else {
		res.Matched = true
		res.Flagged = d.appendRemaining(func(m frame.Message) bool { return !frame.IsHeartbeat(m) })
		log.Debug().
			Str("rule", name).
			Int("messages", len(d.out)).
			Int("trailing_flagged", res.Flagged).
			Msg("interleaving found")
	}
	res.Messages = d.out
	return res, nil
}

type mark struct {
	ci, si, out int
}

func (d *Detective) mark() mark {
	return mark{ci: d.ci, si: d.si, out: len(d.out)}
}

func (d *Detective) reset(m mark) {
	d.ci, d.si = m.ci, m.si
	clear(d.out[m.out:])
	d.out = d.out[:m.out]
}

// matchRule matches a rule body in order. On failure nothing it consumed
// stays consumed.
func (d *Detective) matchRule(name string) *MismatchError {
	rule, _ := d.grammar.Rule(name)
	m := d.mark()
	for _, step := range rule.Steps {
		if err := d.matchStep(name, step); err != nil {
			d.reset(m)
			return err
		}
	}
	return nil
}

func (d *Detective) matchStep(rule string, step grammar.Step) *MismatchError {
	switch step.Kind {
	case grammar.StepAtomic:
		return d.matchAtomic(rule, step)
	case grammar.StepRule:
		return d.matchRule(step.Name)
	case grammar.StepOptional:
		m := d.mark()
		if err := d.matchStep(rule, *step.Inner); err != nil {
			d.reset(m)
		}
		return nil
	case grammar.StepRepeat:
		for {
			m := d.mark()
			if err := d.matchStep(rule, *step.Inner); err != nil {
				d.reset(m)
				return nil
			}
			if d.ci == m.ci && d.si == m.si {
				return nil
			}
		}
	case grammar.StepAlternation:
		var last *MismatchError
		for _, branch := range step.Branches {
			m := d.mark()
			err := d.matchStep(rule, branch)
			if err == nil {
				return nil
			}
			d.reset(m)
			last = err
		}
		return last
	default:
		return &MismatchError{Rule: rule, Step: step.String(), Got: "unsupported step kind " + step.Kind.String()}
	}
}

// matchAtomic consumes the next message of one side if it carries the
// expected name. Heartbeats ahead of it are passed through to the output
// unless the step itself expects a heartbeat.
func (d *Detective) matchAtomic(rule string, step grammar.Step) *MismatchError {
	queue, pos := d.client, &d.ci
	if step.Source == frame.SourceServer {
		queue, pos = d.server, &d.si
	}
	m := d.mark()
	for *pos < len(queue) {
		msg := queue[*pos]
		if msg.Method() == step.Name {
			*pos++
			d.out = append(d.out, msg)
			return nil
		}
		if !frame.IsHeartbeat(msg) {
			break
		}
		*pos++
		d.out = append(d.out, msg)
	}
	got := endOfQueue
	if *pos < len(queue) {
		got = queue[*pos].Source().String() + ":" + queue[*pos].Method()
	}
	d.reset(m)
	return d.mismatch(rule, step, got)
}

func (d *Detective) mismatch(rule string, step grammar.Step, got string) *MismatchError {
	err := &MismatchError{Rule: rule, Step: step.String(), Got: got}
	if pos := d.ci + d.si; pos >= d.furthestPos {
		d.furthest, d.furthestPos = err, pos
	}
	log.Trace().Str("rule", rule).Str("step", err.Step).Str("got", got).Msg("step mismatch")
	return err
}

// appendRemaining drains both queues from the cursors, one client message
// then one server message per round, and flags those selected by flag.
func (d *Detective) appendRemaining(flag func(frame.Message) bool) int {
	flagged := 0
	add := func(m frame.Message) {
		if flag(m) {
			m.MarkOutOfOrder()
			flagged++
		}
		d.out = append(d.out, m)
	}
	for d.ci < len(d.client) || d.si < len(d.server) {
		if d.ci < len(d.client) {
			add(d.client[d.ci])
			d.ci++
		}
		if d.si < len(d.server) {
			add(d.server[d.si])
			d.si++
		}
	}
	return flagged
}
