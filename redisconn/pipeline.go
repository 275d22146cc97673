package redisconn

import (
	"github.com/joomcode/redisfifo/redis"
	"github.com/joomcode/redisfifo/resp"
)

// call is a request that is not completed yet.
type call struct {
	frame   []byte
	project redis.Projector
	cb      redis.Callback
	n       uint64
}

// finish applies projector and calls callback.
func (c *call) finish(res interface{}, err error) {
	if err == nil && c.project != nil {
		v, perr := c.project(res)
		if perr != nil {
			res, err = nil, redis.ErrProjection.Wrap(perr, "reply projection failed").
				WithProperty(redis.EKReply, res)
		} else {
			res = v
		}
	}
	c.cb(res, err, c.n)
}

// callQueue is a FIFO of calls.
type callQueue struct {
	items []*call
	head  int
}

func (q *callQueue) len() int {
	return len(q.items) - q.head
}

func (q *callQueue) push(c ...*call) {
	if q.head > 0 && q.head >= len(q.items)/2 {
		n := copy(q.items, q.items[q.head:])
		for i := n; i < len(q.items); i++ {
			q.items[i] = nil
		}
		q.items = q.items[:n]
		q.head = 0
	}
	q.items = append(q.items, c...)
}

func (q *callQueue) pop() *call {
	if q.head == len(q.items) {
		return nil
	}
	c := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return c
}

// popBack removes last pushed call.
func (q *callQueue) popBack() *call {
	if q.head == len(q.items) {
		return nil
	}
	last := len(q.items) - 1
	c := q.items[last]
	q.items[last] = nil
	q.items = q.items[:last]
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return c
}

// drain removes all calls in FIFO order.
func (q *callQueue) drain() []*call {
	calls := append([]*call(nil), q.items[q.head:]...)
	for i := range q.items {
		q.items[i] = nil
	}
	q.items = q.items[:0]
	q.head = 0
	return calls
}

// frameWriter accepts frames to be sent to redis.
// Error means frame were definitely not sent.
type frameWriter interface {
	writeFrame(frame []byte) error
}

// pipeline matches replies to requests in order they were written.
// It is not safe for concurrent use: single goroutine owns it.
type pipeline struct {
	awaitingSend  callQueue
	awaitingReply callQueue
	connected     bool
	buf           []byte
	// broken is set after protocol violation: bytes are dropped until reset.
	broken bool

	dec resp.Decoder
	// complete is called once for every call leaving pipeline.
	complete func(c *call, res interface{}, err error)
}

type stepResult struct {
	sent     bool
	received bool
	// err is connection level error: reply overflow or protocol violation.
	err error
}

func (r stepResult) progress() bool {
	return r.sent || r.received
}

// enqueue adds calls to the tail of awaitingSend.
func (p *pipeline) enqueue(calls ...*call) {
	p.awaitingSend.push(calls...)
}

// feed appends bytes received from transport.
func (p *pipeline) feed(data []byte) {
	if p.broken {
		return
	}
	p.buf = append(p.buf, data...)
}

// pending reports whether step could make progress.
func (p *pipeline) pending() bool {
	return (p.connected && p.awaitingSend.len() > 0) || (len(p.buf) > 0 && !p.broken)
}

// step does single send and single receive.
func (p *pipeline) step(w frameWriter) (r stepResult) {
	if p.connected && p.awaitingSend.len() > 0 {
		c := p.awaitingSend.pop()
		p.awaitingReply.push(c)
		if err := w.writeFrame(c.frame); err != nil {
			p.awaitingReply.popBack()
			p.complete(c, nil, err)
		}
		r.sent = true
	}

	if len(p.buf) == 0 || p.broken {
		return r
	}
	reply, n, err := p.dec.Decode(p.buf)
	switch {
	case err == nil:
		p.consume(n)
		r.received = true
		if c := p.awaitingReply.pop(); c != nil {
			p.complete(c, reply, nil)
		} else {
			r.err = redis.ErrReplyOverflow.New("reply arrived while no request waits for it").
				WithProperty(redis.EKReply, reply)
		}
	case resp.IsTruncated(err):
	default:
		p.broken = true
		p.buf = p.buf[:0]
		r.err = err
	}
	return r
}

func (p *pipeline) consume(n int) {
	if n == len(p.buf) {
		p.buf = p.buf[:0]
		return
	}
	p.buf = p.buf[n:]
}

// reset prepares pipeline for new transport.
func (p *pipeline) reset(connected bool) {
	p.connected = connected
	p.buf = nil
	p.broken = false
}

// failAll fails every call, awaitingReply first, then awaitingSend.
func (p *pipeline) failAll(replyErr, sendErr error) {
	for _, c := range p.awaitingReply.drain() {
		p.complete(c, nil, replyErr)
	}
	for _, c := range p.awaitingSend.drain() {
		p.complete(c, nil, sendErr)
	}
}
