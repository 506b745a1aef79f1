// Package watch implements the fixed-capacity watchpoint pool of
// spec.md section 4.I: persistent expressions re-evaluated after every
// retired instruction, a change in value halting the CPU. Grounded on
// original_source/nemu/src/monitor/sdb/watchpoint.c's free-list of WP
// nodes, reexpressed as a fixed array of 32 slots with a parallel
// liveness bitmap instead of the original's hand-rolled linked list
// splicing — the ascending-id ordering watchpoints_check relies on
// falls out of a plain index scan.
package watch

import (
	"errors"
	"fmt"
	"io"
)

// Capacity is the number of watchpoint slots, per spec.md section 3.
const Capacity = 32

// ErrFull is returned by Add when every slot is occupied.
var ErrFull = errors.New("watch: watchpoint pool is full")

// ErrNotFound is returned by Remove for an id that is not live.
var ErrNotFound = errors.New("watch: no such watchpoint")

// Evaluator computes an expression's current value against live
// machine state. pkg/debugger supplies an implementation backed by
// pkg/expr.
type Evaluator interface {
	Evaluate(exprText string) (uint32, error)
}

// Watchpoint is one tracked expression.
type Watchpoint struct {
	ID        int
	Expr      string
	LastValue uint32
}

// Pool is the 32-slot watchpoint pool.
type Pool struct {
	slots [Capacity]Watchpoint
	live  [Capacity]bool
	eval  Evaluator
	out   io.Writer
}

// NewPool creates an empty pool. out receives the "Watchpoint[id] ..."
// change lines Check prints; a nil out discards them.
func NewPool(eval Evaluator, out io.Writer) *Pool {
	return &Pool{eval: eval, out: out}
}

// Add evaluates exprText once to seed LastValue and occupies the
// lowest free slot, returning its id.
func (p *Pool) Add(exprText string) (int, error) {
	for i := 0; i < Capacity; i++ {
		if p.live[i] {
			continue
		}
		v, err := p.eval.Evaluate(exprText)
		if err != nil {
			return 0, fmt.Errorf("watch: evaluating %q: %w", exprText, err)
		}
		p.live[i] = true
		p.slots[i] = Watchpoint{ID: i, Expr: exprText, LastValue: v}
		return i, nil
	}
	return 0, ErrFull
}

// Remove frees id's slot.
func (p *Pool) Remove(id int) error {
	if id < 0 || id >= Capacity || !p.live[id] {
		return ErrNotFound
	}
	p.live[id] = false
	return nil
}

// Check re-evaluates every live watchpoint in ascending id order. Any
// watchpoint whose value changed has its LastValue updated and a
// change line printed to out; Check visits every live watchpoint even
// after the first change is found, per spec.md section 4.I's ordering
// guarantee, and reports whether any changed.
func (p *Pool) Check() bool {
	changed := false
	for i := 0; i < Capacity; i++ {
		if !p.live[i] {
			continue
		}
		v, err := p.eval.Evaluate(p.slots[i].Expr)
		if err != nil {
			continue
		}
		if v != p.slots[i].LastValue {
			if p.out != nil {
				fmt.Fprintf(p.out, "Watchpoint[%d] {%s} changed from %d to %d\n",
					i, p.slots[i].Expr, p.slots[i].LastValue, v)
			}
			p.slots[i].LastValue = v
			changed = true
		}
	}
	return changed
}

// Display lists all live watchpoints by id and expression text, in
// ascending id order.
func (p *Pool) Display() []Watchpoint {
	var out []Watchpoint
	for i := 0; i < Capacity; i++ {
		if p.live[i] {
			out = append(out, p.slots[i])
		}
	}
	return out
}
