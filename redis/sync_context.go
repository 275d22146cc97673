package redis

import (
	"context"
	"sync/atomic"
)

// ErrRequestCancelled - context passed to SyncCtx were done before reply arrived.
// Request itself is not cancelled: it stays in pipeline until reply or connection close.
var ErrRequestCancelled = ErrRequest.NewSubtype("cancelled")

// SyncCtx is like Sync, but every method accepts context and returns as soon as it is done.
type SyncCtx struct {
	S Sender
}

// Do is convenient method to construct and send request.
func (s SyncCtx) Do(ctx context.Context, cmd string, args ...interface{}) (interface{}, error) {
	r := s.Send(ctx, Req(cmd, args...))
	return r.Value, r.Err
}

// Send sends request and waits for result or ctx.Done().
func (s SyncCtx) Send(ctx context.Context, r Request) Result {
	res := ctxRes{ch: make(chan struct{})}

	s.S.Send(r, res.set, 0)

	select {
	case <-ctx.Done():
		return Result{Err: ErrRequestCancelled.Wrap(ctx.Err(), "request cancelled")}
	case <-res.ch:
		return res.r
	}
}

// SendMany sends requests and waits for all results or ctx.Done().
// Requests not answered till ctx.Done() are reported as cancelled.
func (s SyncCtx) SendMany(ctx context.Context, reqs []Request) []Result {
	res := ctxBatch{
		ch: make(chan struct{}),
		r:  make([]Result, len(reqs)),
		o:  make([]uint32, len(reqs)),
	}
	if len(reqs) == 0 {
		return res.r
	}

	s.S.SendMany(reqs, res.set, 0)

	select {
	case <-ctx.Done():
		err := ErrRequestCancelled.Wrap(ctx.Err(), "request cancelled")
		for i := range res.o {
			res.set(nil, err, uint64(i))
		}
		<-res.ch
	case <-res.ch:
	}
	return res.r
}

type ctxRes struct {
	ch chan struct{}
	r  Result
}

func (c *ctxRes) set(res interface{}, err error, _ uint64) {
	c.r = Result{Value: res, Err: err}
	close(c.ch)
}

type ctxBatch struct {
	ch  chan struct{}
	r   []Result
	o   []uint32
	cnt uint32
}

func (s *ctxBatch) set(res interface{}, err error, i uint64) {
	if atomic.CompareAndSwapUint32(&s.o[i], 0, 1) {
		s.r[i] = Result{Value: res, Err: err}
		if int(atomic.AddUint32(&s.cnt, 1)) == len(s.r) {
			close(s.ch)
		}
	}
}
