package redis

// ChanFutured wraps Sender and provides asynchronous interface through future implemented
// with channel.
type ChanFutured struct {
	S Sender
}

// Send sends request and returns future for its result.
func (s ChanFutured) Send(r Request) *ChanFuture {
	f := &ChanFuture{wait: make(chan struct{})}
	s.S.Send(r, f.set, 0)
	return f
}

// SendMany sends requests and returns futures for their results.
func (s ChanFutured) SendMany(reqs []Request) ChanFutures {
	futures := make(ChanFutures, len(reqs))
	for i := range futures {
		futures[i] = &ChanFuture{wait: make(chan struct{})}
	}
	s.S.SendMany(reqs, futures.set, 0)
	return futures
}

// ChanFuture - future implemented with channel as signal of fulfillment.
type ChanFuture struct {
	r    Result
	wait chan struct{}
}

// Value waits for result to be fulfilled and returns it.
func (f *ChanFuture) Value() (interface{}, error) {
	<-f.wait
	return f.r.Value, f.r.Err
}

// Done returns channel that will be closed on fulfillment.
func (f *ChanFuture) Done() <-chan struct{} {
	return f.wait
}

func (f *ChanFuture) set(res interface{}, err error, _ uint64) {
	f.r = Result{Value: res, Err: err}
	close(f.wait)
}

// ChanFutures - list of ChanFuture.
type ChanFutures []*ChanFuture

func (f ChanFutures) set(res interface{}, err error, i uint64) {
	f[i].set(res, err, i)
}
