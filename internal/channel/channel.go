// Package channel decouples independently clocked producers (sensors, input) from the
// tick goroutine that consumes them.
package channel

import "sync"

type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

type Sender[T any] interface {
	// Send blocks until the value is taken or buffered.
	Send(T)
	// TrySend delivers without blocking and reports whether the value was taken.
	TrySend(T) bool
}

type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}

// Pipe is a Channel over a native chan. Close may be called more than once.
type Pipe[T any] struct {
	ch   chan T
	once sync.Once
}

// NewBuffered returns a Pipe holding up to size values.
func NewBuffered[T any](size int) *Pipe[T] {
	return &Pipe[T]{ch: make(chan T, size)}
}

// NewUnbuffered returns a Pipe that hands values straight to a waiting receiver.
func NewUnbuffered[T any]() *Pipe[T] {
	return &Pipe[T]{ch: make(chan T)}
}

func (p *Pipe[T]) Send(v T) {
	p.ch <- v
}

func (p *Pipe[T]) TrySend(v T) bool {
	select {
	case p.ch <- v:
		return true
	default:
		return false
	}
}

func (p *Pipe[T]) Receive() <-chan T {
	return p.ch
}

// Len is the number of buffered values, always 0 when unbuffered.
func (p *Pipe[T]) Len() int {
	return len(p.ch)
}

func (p *Pipe[T]) Close() {
	p.once.Do(func() { close(p.ch) })
}
