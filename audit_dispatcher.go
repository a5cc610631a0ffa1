package authkit

import (
	"context"
	"sync"
	"time"
)

// auditDispatcher decouples audit emission from the request path. Events are
// queued on a bounded channel and delivered to the sink by a single
// goroutine; when the queue is full the event is dropped rather than
// blocking the caller.
type auditDispatcher struct {
	sink    AuditSink
	queue   chan AuditEvent
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	timeout time.Duration
}

func newAuditDispatcher(sink AuditSink, buffer int, timeout time.Duration) *auditDispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	d := &auditDispatcher{
		sink:    sink,
		queue:   make(chan AuditEvent, buffer),
		done:    make(chan struct{}),
		timeout: timeout,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.done:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case event := <-d.queue:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *auditDispatcher) deliver(event AuditEvent) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	d.sink.Emit(ctx, event)
}

// dispatch enqueues an event without blocking. Returns false when the
// queue is full or the dispatcher is closed.
func (d *auditDispatcher) dispatch(event AuditEvent) bool {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case <-d.done:
		return false
	default:
	}
	select {
	case d.queue <- event:
		return true
	default:
		return false
	}
}

// close stops the dispatcher after draining queued events.
func (d *auditDispatcher) close() {
	d.once.Do(func() {
		close(d.done)
	})
	d.wg.Wait()
}
