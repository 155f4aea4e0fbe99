package engineio

import (
	"context"
	"sync"
	"time"

	"github.com/beamforge/beam/graph"
)

// Op is a unit of serialized work: any graph mutation that must never
// interleave with another on the same AudioGraph.
type Op interface {
	Apply(ctx context.Context) error
}

// Func adapts a plain function to Op.
type Func func(ctx context.Context) error

func (f Func) Apply(ctx context.Context) error { return f(ctx) }

// opQueue is a single-worker drain queue: one goroutine applies every
// enqueued Op in order, so no two edits ever interleave. It does not
// coordinate with a Process call running on the same AudioGraph.
type opQueue struct {
	ch      chan Op
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
}

func newOpQueue(buffer int) *opQueue {
	if buffer <= 0 {
		buffer = 32
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &opQueue{ch: make(chan Op, buffer), ctx: ctx, cancel: cancel}
}

func (q *opQueue) start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true
	q.wg.Add(1)
	go q.drain()
}

func (q *opQueue) drain() {
	defer q.wg.Done()
	for {
		select {
		case op := <-q.ch:
			_ = op.Apply(q.ctx)
		case <-q.ctx.Done():
			// best-effort: finish whatever is already queued, then exit
			deadline := time.After(10 * time.Millisecond)
			for {
				select {
				case op := <-q.ch:
					_ = op.Apply(q.ctx)
				case <-deadline:
					return
				}
			}
		}
	}
}

// enqueue queues op without blocking the caller; returns an error if the
// queue is closed or full.
func (q *opQueue) enqueue(op Op) error {
	select {
	case q.ch <- op:
		return nil
	case <-q.ctx.Done():
		return context.Canceled
	default:
		return ErrQueueFull
	}
}

// runSync queues fn and blocks until the worker has applied it (or the
// queue is closed), returning its result.
func (q *opQueue) runSync(fn Func) error {
	result := make(chan error, 1)
	wrapped := Func(func(ctx context.Context) error {
		err := fn(ctx)
		result <- err
		return err
	})
	if err := q.enqueue(wrapped); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-q.ctx.Done():
		return context.Canceled
	}
}

func (q *opQueue) close() {
	q.cancel()
	q.wg.Wait()
}

// Dispatcher serializes topology-changing edits (add_node, connect,
// disconnect, remove_node) to one AudioGraph reached through Handles.
type Dispatcher struct {
	g *graph.AudioGraph
	q *opQueue
}

// NewDispatcher creates a dispatcher bound to g and starts its worker.
func NewDispatcher(g *graph.AudioGraph) *Dispatcher {
	d := &Dispatcher{g: g, q: newOpQueue(32)}
	d.q.start()
	return d
}

// Close stops the dispatcher's worker, waiting for any in-flight op.
func (d *Dispatcher) Close() { d.q.close() }

// AddNode serializes a node insertion and returns its handle.
func (d *Dispatcher) AddNode(n graph.Node) (graph.Handle, error) {
	var h graph.Handle
	err := d.q.runSync(func(ctx context.Context) error {
		h = d.g.AddNode(n)
		return nil
	})
	return h, err
}

// RemoveNode serializes a node removal.
func (d *Dispatcher) RemoveNode(h graph.Handle) error {
	return d.q.runSync(func(ctx context.Context) error {
		d.g.RemoveNode(h)
		return nil
	})
}

// Connect serializes an edge insertion.
func (d *Dispatcher) Connect(from graph.Handle, fromPort int, to graph.Handle, toPort int) error {
	return d.q.runSync(func(ctx context.Context) error {
		return d.g.Connect(from, fromPort, to, toPort)
	})
}

// Disconnect serializes an edge removal.
func (d *Dispatcher) Disconnect(from graph.Handle, fromPort int, to graph.Handle, toPort int) error {
	return d.q.runSync(func(ctx context.Context) error {
		d.g.Disconnect(from, fromPort, to, toPort)
		return nil
	})
}

// SetOutputNode serializes the graph's output-node designation.
func (d *Dispatcher) SetOutputNode(h graph.Handle) error {
	return d.q.runSync(func(ctx context.Context) error {
		d.g.SetOutputNode(h)
		return nil
	})
}
