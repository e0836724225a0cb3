package views

import "sync"

type delivery struct {
	event   Event
	targets []EventSubscriber
}

// Dispatcher delivers events to subscribers in the order they were fired.
// Posted events are delivered by a single pump goroutine. Send delivers any
// still pending posts and then its own event on the caller's goroutine, so
// the relative order of all events is preserved.
//
// Subscribers must not block on the document from HandleEvent: Send holds
// the delivery lock while calling them.
type Dispatcher struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []delivery
	closed  bool

	deliverMu sync.Mutex
	done      chan struct{}
}

// NewDispatcher starts the pump goroutine.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{done: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	go d.pump()
	return d
}

// Post queues ev for deferred delivery to targets.
func (d *Dispatcher) Post(ev Event, targets []EventSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.pending = append(d.pending, delivery{event: ev, targets: targets})
	d.cond.Signal()
}

// Send delivers ev to targets before returning.
func (d *Dispatcher) Send(ev Event, targets []EventSubscriber) {
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	for _, pending := range d.take() {
		pending.deliver()
	}
	delivery{event: ev, targets: targets}.deliver()
}

// Flush blocks until every event posted so far has been delivered.
func (d *Dispatcher) Flush() {
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	for _, pending := range d.take() {
		pending.deliver()
	}
}

// Close delivers what is pending and stops the pump goroutine.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()

	<-d.done
}

func (d *Dispatcher) take() []delivery {
	d.mu.Lock()
	defer d.mu.Unlock()

	taken := d.pending
	d.pending = nil
	return taken
}

func (d *Dispatcher) pump() {
	defer close(d.done)

	for {
		d.mu.Lock()
		for len(d.pending) == 0 && !d.closed {
			d.cond.Wait()
		}
		closed := d.closed
		d.mu.Unlock()

		d.Flush()

		if closed {
			return
		}
	}
}

func (dl delivery) deliver() {
	for _, target := range dl.targets {
		target.HandleEvent(dl.event)
	}
}
