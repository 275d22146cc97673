package redis

import (
	"sync"
)

// Result is a result of single request.
type Result struct {
	// Value is (projected) reply. It may be error reply from redis.
	Value interface{}
	// Err is a failure of request itself.
	Err error
}

// AnyError returns either failure of request or error reply from redis.
func (r Result) AnyError() error {
	if r.Err != nil {
		return r.Err
	}
	return AsError(r.Value)
}

// Sync provides convenient synchronous interface over asynchronous Sender.
type Sync struct {
	S Sender
}

// Do is convenient method to construct and send request.
func (s Sync) Do(cmd string, args ...interface{}) (interface{}, error) {
	r := s.Send(Req(cmd, args...))
	return r.Value, r.Err
}

// Send sends request and waits for result.
func (s Sync) Send(r Request) Result {
	var res syncRes
	res.Add(1)
	s.S.Send(r, res.set, 0)
	res.Wait()
	return res.r
}

// SendMany sends several requests at once and waits for all results.
// Results are in the order of requests.
func (s Sync) SendMany(reqs []Request) []Result {
	res := syncBatch{
		r: make([]Result, len(reqs)),
	}
	res.Add(len(reqs))
	s.S.SendMany(reqs, res.set, 0)
	res.Wait()
	return res.r
}

// Scanner returns iterator over keys.
func (s Sync) Scanner(opts ScanOpts) SyncIterator {
	return SyncIterator{NewScanner(s.S, opts)}
}

type syncRes struct {
	r Result
	sync.WaitGroup
}

func (s *syncRes) set(res interface{}, err error, _ uint64) {
	s.r.Value, s.r.Err = res, err
	s.Done()
}

type syncBatch struct {
	r []Result
	sync.WaitGroup
}

func (s *syncBatch) set(res interface{}, err error, i uint64) {
	el := &s.r[i]
	el.Value, el.Err = res, err
	s.Done()
}

// SyncIterator is synchronous wrapper around Scanner.
type SyncIterator struct {
	s *Scanner
}

// Next returns next bunch of keys, or ScanEOF.
func (s SyncIterator) Next() ([]string, error) {
	var keys []string
	var err error
	var wg sync.WaitGroup
	wg.Add(1)
	s.s.Next(func(k []string, e error) {
		keys, err = k, e
		wg.Done()
	})
	wg.Wait()
	return keys, err
}
