package pipeline

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"
)

// persistOp is one pending store write. Payload holds the marshaled
// authoritative message and may be backed by a pooled buffer; the worker
// must call item.done exactly once after processing.
type persistOp struct {
	TempID    string
	Sender    string
	Recipient string
	Payload   []byte
}

var errQueueFull = errors.New("persist queue full")

type item struct {
	op   *persistOp
	buf  *bytebufferpool.ByteBuffer
	once sync.Once
}

var opPool = sync.Pool{New: func() any { return &persistOp{} }}

// done releases pooled resources back to their pools.
func (it *item) done(maxPooled int) {
	it.once.Do(func() {
		if it.buf != nil {
			// avoid retaining huge buffers in the pool
			if maxPooled > 0 && cap(it.buf.B) > maxPooled {
				it.buf = nil
			} else {
				bytebufferpool.Put(it.buf)
				it.buf = nil
			}
		}
		if it.op != nil {
			it.op.Payload = nil
			opPool.Put(it.op)
			it.op = nil
		}
	})
}

// queue is the bounded in-memory persist queue between the synchronous
// optimistic broadcast and the asynchronous store write. Safe for
// concurrent producers; workers range over out().
type queue struct {
	ch        chan *item
	capacity  int
	maxPooled int
	dropped   uint64
}

func newQueue(capacity, maxPooledBuffer int) *queue {
	if capacity <= 0 {
		capacity = 4096
	}
	if maxPooledBuffer <= 0 {
		maxPooledBuffer = 256 * 1024
	}
	return &queue{ch: make(chan *item, capacity), capacity: capacity, maxPooled: maxPooledBuffer}
}

// tryEnqueue copies op into pooled storage and enqueues it without
// blocking. Returns errQueueFull when at capacity; the caller treats that
// as a persistence failure.
func (q *queue) tryEnqueue(op *persistOp) error {
	newOp := opPool.Get().(*persistOp)
	*newOp = *op

	var bb *bytebufferpool.ByteBuffer
	if len(op.Payload) > 0 {
		bb = bytebufferpool.Get()
		bb.B = append(bb.B[:0], op.Payload...)
		newOp.Payload = bb.B[:len(op.Payload)]
	}

	it := &item{op: newOp, buf: bb}

	select {
	case q.ch <- it:
		return nil
	default:
		if bb != nil {
			bytebufferpool.Put(bb)
		}
		opPool.Put(newOp)
		atomic.AddUint64(&q.dropped, 1)
		return errQueueFull
	}
}

func (q *queue) out() <-chan *item { return q.ch }

// close stops intake; remaining items are still delivered to workers
// ranging over out(), then the channel reports closed.
func (q *queue) close() { close(q.ch) }

func (q *queue) len() int { return len(q.ch) }

func (q *queue) droppedCount() uint64 { return atomic.LoadUint64(&q.dropped) }
