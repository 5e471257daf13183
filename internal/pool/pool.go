// Package pool recycles visual-element handles between layout passes so the
// number of live elements tracks the number of visible events instead of
// growing with every redraw.
package pool

// Bindable is implemented by handles that can be pointed at new content.
type Bindable[C any] interface {
	Bind(content C)
}

// Pool hands out handles of type H, reusing returned ones before building new
// ones. It is meant to be driven from a single rendering goroutine.
type Pool[H any] struct {
	newFn   func() H
	free    []H
	created int
}

// New returns an empty pool that builds handles with newFn.
func New[H any](newFn func() H) *Pool[H] {
	return &Pool[H]{newFn: newFn}
}

// Enqueue returns handles to the pool. Returning a handle that is already
// free is a caller error and is not detected.
func (p *Pool[H]) Enqueue(handles ...H) {
	p.free = append(p.free, handles...)
}

// Dequeue returns a free handle, or a new one when none is free.
func (p *Pool[H]) Dequeue() H {
	if n := len(p.free); n > 0 {
		h := p.free[n-1]
		var zero H
		p.free[n-1] = zero
		p.free = p.free[:n-1]
		return h
	}
	p.created++
	return p.newFn()
}

// Created is the number of handles the pool ever built.
func (p *Pool[H]) Created() int { return p.created }

// Free is the number of handles waiting to be reused.
func (p *Pool[H]) Free() int { return len(p.free) }

// Rebind runs one layout pass worth of recycling: every handle in live goes
// back to the pool, then one handle per content is dequeued and bound. The
// returned slice replaces live.
func Rebind[H Bindable[C], C any](p *Pool[H], live []H, contents []C) []H {
	p.Enqueue(live...)

	out := make([]H, 0, len(contents))
	for _, c := range contents {
		h := p.Dequeue()
		h.Bind(c)
		out = append(out, h)
	}
	return out
}
