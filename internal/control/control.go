// Package control routes player and host commands (fire, catch, placement, model) to
// handlers. Handlers that touch engine state are deferred and run by Flush on the tick
// goroutine; buffered handlers run on their own goroutine for slow sinks like storage.
package control

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GhostbusterQuest/huntcore/internal/queue"
)

// Commands understood by the hunt session.
const (
	CmdFireStart     = ":FIRE:START:"
	CmdFireStop      = ":FIRE:STOP:"
	CmdCatch         = ":CATCH:"
	CmdPlacement     = ":PLACEMENT:"
	CmdModel         = ":MODEL:"
	CmdRecordCapture = ":CAPTURE:RECORD:"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrQueueFull      = errors.New("queue full")
	ErrClosed         = errors.New("dispatcher closed")
)

// Event is one incoming command.
type Event struct {
	Command   string
	Args      []string
	Payload   any // typed data for in-process senders
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	deferred   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Deferred holds the event until the next Flush. Deferred events from all commands share
// one queue and run in arrival order.
func Deferred() Option {
	return func(c *config) {
		c.deferred = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type pending struct {
	event   Event
	handler HandlerFunc
}

// lane is the queue and goroutine behind one buffered command.
type lane struct {
	events   chan Event
	blocking bool
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	lanes    map[string]*lane
	closed   bool
	wg       sync.WaitGroup

	deferred *queue.Queue[pending]
	logger   Logger
	metrics  *metrics
}

// New creates a Dispatcher. deferredLimit bounds the deferred queue; zero means unbounded.
func New(logger Logger, deferredLimit int) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		lanes:    make(map[string]*lane),
		deferred: queue.NewBounded[pending](deferredLimit),
		logger:   logger,
	}
	m, err := newMetrics(d.depths)
	if err != nil {
		return nil, err
	}
	d.metrics = m
	return d, nil
}

func (d *Dispatcher) depths() map[string]int {
	out := map[string]int{"deferred": d.deferred.Len()}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for cmd, l := range d.lanes {
		out[cmd] = len(l.events)
	}
	return out
}

// Register adds a handler for the given command with optional configuration.
// Deferred wins over Buffered when both are given.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logged {
		h = d.withLogging(command, h)
	}
	switch {
	case cfg.deferred:
		h = d.withDeferral(command, h)
	case cfg.bufferSize > 0:
		h = d.withLane(command, cfg.bufferSize, cfg.blocking, h)
	}

	d.mu.Lock()
	d.handlers[command] = h
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler. Safe from any goroutine.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	d.mu.RLock()
	h, ok := d.handlers[e.Command]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	return h(e)
}

func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[command]
	return ok
}

// Flush runs every deferred event queued so far, in order, and returns how many ran.
// Call it from the goroutine that owns the state the deferred handlers touch.
func (d *Dispatcher) Flush() int {
	items := d.deferred.Drain(0)
	for _, p := range items {
		if _, err := p.handler(p.event); err != nil {
			d.logger.Error("deferred command failed", "command", p.event.Command, "error", err)
		}
		d.metrics.ran(p.event.Command)
	}
	return len(items)
}

// Pending is the number of deferred events waiting for Flush.
func (d *Dispatcher) Pending() int {
	return d.deferred.Len()
}

// Close stops accepting work and waits for buffered handlers to drain. Deferred events
// still queued are discarded; later dispatches to deferred or buffered handlers fail
// with ErrClosed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, l := range d.lanes {
		close(l.events)
	}
	d.mu.Unlock()
	d.wg.Wait()
	d.deferred.Clear()
}

func (d *Dispatcher) withDeferral(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			d.metrics.drop(command)
			return nil, fmt.Errorf("%w: %s", ErrClosed, command)
		}
		if d.deferred.Push(pending{event: e, handler: h}) == 0 {
			d.metrics.drop(command)
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, command)
		}
		return "queued", nil
	}
}

func (d *Dispatcher) withLane(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	l := &lane{events: make(chan Event, size), blocking: blocking}
	d.mu.Lock()
	d.lanes[command] = l
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for e := range l.events {
			if _, err := h(e); err != nil {
				d.logger.Error("buffered command failed", "command", command, "error", err)
			}
			d.metrics.ran(command)
		}
	}()

	return func(e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			d.metrics.drop(command)
			return nil, fmt.Errorf("%w: %s", ErrClosed, command)
		}
		if !l.offer(e) {
			d.metrics.drop(command)
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, command)
		}
		return "queued", nil
	}
}

// offer queues e, waiting for room when the lane is blocking.
func (l *lane) offer(e Event) bool {
	if l.blocking {
		l.events <- e
		return true
	}
	select {
	case l.events <- e:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling command", "command", command, "args", len(e.Args))
		result, err := h(e)
		if err != nil {
			d.logger.Error("command failed", "command", command, "duration", time.Since(start), "error", err)
			return result, err
		}
		d.logger.Debug("command complete", "command", command, "duration", time.Since(start))
		return result, nil
	}
}
